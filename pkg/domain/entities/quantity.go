package entities

import "github.com/shopspring/decimal"

// NonNegative clamps q to zero when it is negative
func NonNegative(q decimal.Decimal) decimal.Decimal {
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}

// SumQuantities adds up the given quantities
func SumQuantities(quantities ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, q := range quantities {
		total = total.Add(q)
	}
	return total
}
