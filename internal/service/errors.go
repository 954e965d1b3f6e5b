package service

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"shop-api/internal/store"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a resource does not exist or belongs to another user
	ErrNotFound = store.ErrNotFound
	// ErrEmptyCart is returned when an order is placed from an empty cart
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCheckoutInProgress is returned when another checkout for the same user holds the lock
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrMissingCredentials is returned by login when username or password is blank
	ErrMissingCredentials = errors.New("username and password required")
	// ErrInvalidCredentials is returned by login on a bad username/password pair
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned when a request carries no usable identity
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
)

// Messages shared by validators
const (
	msgRequired  = "This field is required."
	msgMinOne    = "Ensure this value is greater than or equal to 1."
	msgMinZero   = "Ensure this value is greater than or equal to 0."
	msgBadChoice = "%q is not a valid choice."
)

// ValidationError carries per-field messages, rendered as {"field": ["msg", ...]}
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = map[string][]string{}
	}
	v.Fields[field] = append(v.Fields[field], msg)
}

// OrNil returns nil when no field has failed
func (v *ValidationError) OrNil() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(v.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Column shapes for decimal inputs, NUMERIC(maxDigits, places)
const (
	moneyDigits, moneyPlaces = 10, 2
	coordDigits, coordPlaces = 9, 6
)

// checkDecimal adds a field error when d does not fit NUMERIC(maxDigits, places).
// Digits are counted as written, so "1.500" has three decimal places.
func checkDecimal(verr *ValidationError, field string, d decimal.Decimal, maxDigits, places int) {
	exp := int(d.Exponent())
	digits := len(new(big.Int).Abs(d.Coefficient()).String())

	var decimals int
	switch {
	case exp >= 0:
		digits += exp
	case -exp > digits:
		digits, decimals = -exp, -exp
	default:
		decimals = -exp
	}

	switch {
	case digits > maxDigits:
		verr.Add(field, fmt.Sprintf("Ensure that there are no more than %d digits in total.", maxDigits))
	case decimals > places:
		verr.Add(field, fmt.Sprintf("Ensure that there are no more than %d decimal places.", places))
	case digits-decimals > maxDigits-places:
		verr.Add(field, fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", maxDigits-places))
	}
}
