package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMinor renders an amount in minor units as a decimal string with two
// fraction digits, e.g. 999 -> "9.99".
func FormatMinor(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}

// ParseMinor converts a decimal string such as "9.99" into minor units.
// Negative amounts and more than two fraction digits are rejected.
func ParseMinor(field, s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, Invalid(field, "must be a decimal amount")
	}
	if d.IsNegative() {
		return 0, Invalid(field, "must not be negative")
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, Invalid(field, "must have at most two fraction digits")
	}
	return minor.IntPart(), nil
}
