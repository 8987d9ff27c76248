// Package money provides exact conversion between the wallet unit (soum)
// and the gateway minor unit (tiyin, 1/100 soum). Amounts never pass
// through floating point.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var tiyinPerSoum = decimal.NewFromInt(100)

// FromTiyin converts a gateway minor-unit amount into soums.
// The conversion is exact: the result carries two decimal places.
func FromTiyin(tiyin int64) decimal.Decimal {
	return decimal.New(tiyin, -2)
}

// ToTiyin converts a soum amount into whole tiyin, rounding
// to the nearest integer minor unit.
func ToTiyin(amount decimal.Decimal) int64 {
	return amount.Mul(tiyinPerSoum).Round(0).IntPart()
}

// Parse reads a wire-encoded soum amount such as "10000" or "10000.00".
// Amounts must be positive and carry at most two decimal places.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed amount %q: %w", s, err)
	}
	if d.Exponent() < -2 {
		return decimal.Zero, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %q is not positive", s)
	}
	return d, nil
}
