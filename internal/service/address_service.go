package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"shop-api/internal/models"
	"shop-api/internal/store"
	"shop-api/internal/util"

	"github.com/shopspring/decimal"
)

// AddressInput carries address fields; nil means "not supplied".
type AddressInput struct {
	FullName    *string              `json:"full_name"`
	Phone       *string              `json:"phone"`
	Address     *string              `json:"address"`
	City        *string              `json:"city"`
	State       *string              `json:"state"`
	ZipCode     *string              `json:"zip_code"`
	Country     *string              `json:"country"`
	AddressType *string              `json:"address_type"`
	IsDefault   *bool                `json:"is_default"`
	Lat         *decimal.NullDecimal `json:"lat"`
	Lng         *decimal.NullDecimal `json:"lng"`
}

type addressField struct {
	name   string
	maxLen int
	get    func(*AddressInput) *string
	set    func(*models.Address, string)
}

var requiredAddressFields = []addressField{
	{"full_name", 200, func(in *AddressInput) *string { return in.FullName }, func(a *models.Address, v string) { a.FullName = v }},
	{"phone", 20, func(in *AddressInput) *string { return in.Phone }, func(a *models.Address, v string) { a.Phone = v }},
	{"address", 0, func(in *AddressInput) *string { return in.Address }, func(a *models.Address, v string) { a.Address = v }},
	{"city", 100, func(in *AddressInput) *string { return in.City }, func(a *models.Address, v string) { a.City = v }},
	{"state", 100, func(in *AddressInput) *string { return in.State }, func(a *models.Address, v string) { a.State = v }},
	{"zip_code", 20, func(in *AddressInput) *string { return in.ZipCode }, func(a *models.Address, v string) { a.ZipCode = v }},
	{"country", 100, func(in *AddressInput) *string { return in.Country }, func(a *models.Address, v string) { a.Country = v }},
}

var addressTypes = map[string]bool{
	models.AddressTypeHome:  true,
	models.AddressTypeWork:  true,
	models.AddressTypeOther: true,
}

// AddressService is the owner-scoped address book
type AddressService struct {
	store *store.Store
}

func NewAddressService(store *store.Store) *AddressService {
	return &AddressService{store: store}
}

func (s *AddressService) Create(ctx context.Context, id models.Identity, in AddressInput) (*models.Address, error) {
	ctx, span := util.StartSpan(ctx, "AddressService.Create")
	defer span.End()

	addr := &models.Address{UserID: id.UserID, AddressType: models.AddressTypeHome}
	if err := applyAddressInput(addr, &in, false); err != nil {
		return nil, err
	}
	if err := s.store.CreateAddress(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

func (s *AddressService) List(ctx context.Context, id models.Identity) ([]models.Address, error) {
	ctx, span := util.StartSpan(ctx, "AddressService.List")
	defer span.End()

	return s.store.ListAddresses(ctx, id.UserID)
}

func (s *AddressService) Get(ctx context.Context, id models.Identity, addressID int64) (*models.Address, error) {
	ctx, span := util.StartSpan(ctx, "AddressService.Get")
	defer span.End()

	return s.store.GetAddress(ctx, id.UserID, addressID)
}

// Update replaces the address (partial=false) or only the supplied fields (partial=true)
func (s *AddressService) Update(ctx context.Context, id models.Identity, addressID int64, in AddressInput, partial bool) (*models.Address, error) {
	ctx, span := util.StartSpan(ctx, "AddressService.Update")
	defer span.End()

	addr, err := s.store.GetAddress(ctx, id.UserID, addressID)
	if err != nil {
		return nil, err
	}
	if !partial {
		// a full update resets optional fields that were not supplied
		addr.AddressType = models.AddressTypeHome
		addr.IsDefault = false
		addr.Lat = decimal.NullDecimal{}
		addr.Lng = decimal.NullDecimal{}
	}
	if err := applyAddressInput(addr, &in, partial); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAddress(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

func (s *AddressService) Delete(ctx context.Context, id models.Identity, addressID int64) error {
	ctx, span := util.StartSpan(ctx, "AddressService.Delete")
	defer span.End()

	return s.store.DeleteAddress(ctx, id.UserID, addressID)
}

func applyAddressInput(addr *models.Address, in *AddressInput, partial bool) error {
	verr := &ValidationError{}

	for _, f := range requiredAddressFields {
		v := f.get(in)
		if v == nil {
			if !partial {
				verr.Add(f.name, msgRequired)
			}
			continue
		}
		value := strings.TrimSpace(*v)
		switch {
		case value == "":
			verr.Add(f.name, "This field may not be blank.")
		case f.maxLen > 0 && utf8.RuneCountInString(value) > f.maxLen:
			verr.Add(f.name, fmt.Sprintf("Ensure this field has no more than %d characters.", f.maxLen))
		default:
			f.set(addr, value)
		}
	}

	if in.AddressType != nil {
		if addressTypes[*in.AddressType] {
			addr.AddressType = *in.AddressType
		} else {
			verr.Add("address_type", fmt.Sprintf(msgBadChoice, *in.AddressType))
		}
	}
	if in.IsDefault != nil {
		addr.IsDefault = *in.IsDefault
	}
	if in.Lat != nil {
		addr.Lat = *in.Lat
		if addr.Lat.Valid {
			checkDecimal(verr, "lat", addr.Lat.Decimal, coordDigits, coordPlaces)
		}
	}
	if in.Lng != nil {
		addr.Lng = *in.Lng
		if addr.Lng.Valid {
			checkDecimal(verr, "lng", addr.Lng.Decimal, coordDigits, coordPlaces)
		}
	}

	return verr.OrNil()
}
