// Package money holds the fixed-point arithmetic rules for currency amounts.
// All monetary values are decimal with two places; rounding is half-up.
package money

import "github.com/shopspring/decimal"

// RoundCents rounds to 2 decimal places, half away from zero. For the
// non-negative amounts this system deals in that is round-half-up.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsPositive reports whether the amount is strictly greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// IsNegative reports whether the amount is strictly less than zero.
func IsNegative(d decimal.Decimal) bool {
	return d.LessThan(decimal.Zero)
}

// Parse converts a 2-place decimal string as exchanged on the wire.
func Parse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustParse is for literals in tests and seed data.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
