package models

import "github.com/shopspring/decimal"

// LineTotal is quantity x current product price. It is never persisted.
func LineTotal(line CartLine) decimal.Decimal {
	return line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// CartTotals sums line totals over already loaded cart lines.
func CartTotals(lines []CartLine) CartTotal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(LineTotal(line))
	}
	return CartTotal{Total: total, Count: len(lines)}
}

// OrderTotal applies shipping and discount to a subtotal.
func OrderTotal(subtotal, shippingCost, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(shippingCost).Sub(discount)
}
