// Package money holds decimal-safe monetary arithmetic shared by the
// settlement engine. All amounts are shopspring decimals; float64 never
// touches a currency value.
package money

import "github.com/shopspring/decimal"

// Epsilon is the tolerance used when comparing derived totals against
// stored totals (one cent).
var Epsilon = decimal.NewFromFloat(0.01)

var hundred = decimal.NewFromInt(100)

// FeeBreakdown is the result of applying a fee schedule to an amount.
type FeeBreakdown struct {
	Fixed      decimal.Decimal `json:"fixed_fee"`
	Percentage decimal.Decimal `json:"percentage_fee"`
	Total      decimal.Decimal `json:"total_fee"`
}

// ComputeFees applies a fixed + percentage fee schedule to amount.
// Total = fixed + amount * pct/100.
func ComputeFees(fixed, pct, amount decimal.Decimal) FeeBreakdown {
	pctAmount := amount.Mul(pct).Div(hundred)
	return FeeBreakdown{
		Fixed:      fixed,
		Percentage: pctAmount,
		Total:      fixed.Add(pctAmount),
	}
}

// PercentOf returns value * pct/100.
func PercentOf(value, pct decimal.Decimal) decimal.Decimal {
	return value.Mul(pct).Div(hundred)
}

// WithinEpsilon reports whether a and b differ by at most Epsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// Round2 rounds to two decimal places, the storage precision for all
// currency columns.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
