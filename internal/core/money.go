// Package core holds the domain model shared by every other package:
// entities, money handling and the date-range resolver.
//
// Monetary values use shopspring decimal throughout. Binary floating
// point never touches an amount; rounding happens only at parse time,
// on input the user typed.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied decimal string to an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) separators. Amounts must
// be strictly positive and carry at most two decimal places; a third
// decimal place is rejected rather than rounded so that stored data is
// always exactly what the caller sent.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, ValidateAmount(d)
}

// ValidateAmount checks the transaction-amount invariant: strictly
// positive, at most two decimal places. The check is on the value, not
// the representation, so trailing-zero forms like 1.200 pass.
func ValidateAmount(d decimal.Decimal) error {
	if d.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !d.Shift(2).IsInteger() {
		return ErrInvalidAmount
	}
	return nil
}

// Cents converts an amount to integer cents for storage. Callers must
// have validated the amount first; values with more than two decimal
// places return ErrInvalidAmount.
func Cents(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, ErrInvalidAmount
	}
	return shifted.IntPart(), nil
}

// FromCents converts stored integer cents back to a decimal amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
