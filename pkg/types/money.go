package types

import "github.com/shopspring/decimal"

// Rupees builds a whole-rupee amount.
func Rupees(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount)
}

// RoundAmount rounds half away from zero to whole rupees.
func RoundAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(0)
}

// Percent returns round(amount * pct / 100).
func Percent(amount decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return RoundAmount(amount.Mul(pct).Div(decimal.NewFromInt(100)))
}

// NonNegative clamps negative amounts to zero.
func NonNegative(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
