// Package units converts between human amounts ("12.5") and the unsigned
// base units the ledger counts in.
package units

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNegative   = errors.New("amount must not be negative")
	ErrFractional = errors.New("amount has more precision than the configured decimals")
	ErrTooLarge   = errors.New("amount exceeds the representable range")
)

// maxDigits is the digit count of math.MaxUint64.
const maxDigits = 20

// FromDecimal scales d by 10^decimals into base units. The magnitude is
// bounded from the coefficient and exponent before any big.Int is built, so
// inputs like "1e200000000" are rejected without expanding them.
func FromDecimal(d decimal.Decimal, decimals int32) (uint64, error) {
	if d.IsNegative() {
		return 0, ErrNegative
	}
	if d.IsZero() {
		return 0, nil
	}

	digits := int64(d.NumDigits())
	exp := int64(d.Exponent()) + int64(decimals)
	switch {
	case exp > 0 && digits+exp > maxDigits:
		return 0, ErrTooLarge
	case exp < 0 && -exp > digits:
		// coefficient < 10^-exp, so it cannot be a multiple of it
		return 0, ErrFractional
	}

	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return 0, ErrFractional
	}
	n := scaled.BigInt()
	if !n.IsUint64() {
		return 0, ErrTooLarge
	}
	return n.Uint64(), nil
}

// ToDecimal is the inverse of FromDecimal.
func ToDecimal(v uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -decimals)
}

func Format(v uint64, decimals int32) string {
	return ToDecimal(v, decimals).String()
}
