package frontend

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bastion/internal/core"
)

// ParseAmount converts a human decimal string (e.g. "12.5") into minor
// units at the given precision. This is the sole place a decimal string is
// ever parsed anywhere in this repository — the core never sees one.
func ParseAmount(s string, precision uint32) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount", ErrInvalidAmount)
	}

	scaled := d.Shift(int32(precision))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: more precision than market allows", ErrInvalidAmount)
	}
	return scaled.BigInt().Uint64(), nil
}

// ParsePrice is ParseAmount's counterpart for a market's price precision,
// named separately since the two scale against different precisions on the
// same order and mixing them up is an easy, silent mistake.
func ParsePrice(s string, precision uint32) (core.Price, error) {
	minor, err := ParseAmount(s, precision)
	if err != nil {
		return 0, err
	}
	return core.Price(minor), nil
}

// ParseSignedAmount is ParseAmount without the non-negative restriction,
// for the one wire field that is allowed to go either way: a balance
// adjustment's Change.
func ParseSignedAmount(s string, precision uint32) (core.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	scaled := d.Shift(int32(precision))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: more precision than market allows", ErrInvalidAmount)
	}
	return core.Amount(scaled.BigInt().Int64()), nil
}
