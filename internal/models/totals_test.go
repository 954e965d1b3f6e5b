package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartTotals(t *testing.T) {
	lines := []CartLine{
		{Quantity: 2, Product: Product{Price: decimal.RequireFromString("10.00")}},
		{Quantity: 1, Product: Product{Price: decimal.RequireFromString("5.00")}},
	}

	got := CartTotals(lines)

	assert.True(t, got.Total.Equal(decimal.RequireFromString("25.00")), got.Total.String())
	assert.Equal(t, 2, got.Count)
}

func TestCartTotalsEmpty(t *testing.T) {
	got := CartTotals(nil)
	assert.True(t, got.Total.IsZero())
	assert.Equal(t, 0, got.Count)
}

func TestOrderTotalIsExact(t *testing.T) {
	subtotal := decimal.RequireFromString("0.10").Add(decimal.RequireFromString("0.20"))
	total := OrderTotal(subtotal, decimal.RequireFromString("3.00"), decimal.RequireFromString("1.00"))
	assert.Equal(t, "2.30", total.StringFixed(2))
	assert.True(t, total.Equal(decimal.RequireFromString("2.3")))
}

func TestLineTotalUsesCurrentPrice(t *testing.T) {
	line := CartLine{Quantity: 3, Product: Product{Price: decimal.RequireFromString("19.99")}}
	assert.Equal(t, "59.97", LineTotal(line).StringFixed(2))
}
