package scoring

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrAmountOutOfRange is returned when a derived point value does not fit in
// an int64.
var ErrAmountOutOfRange = errors.New("amount out of range")

var (
	// itemBonusRate is the share of an item price awarded as points.
	itemBonusRate = decimal.RequireFromString("0.2")
	maxPoints     = decimal.NewFromInt(math.MaxInt64)
)

// FractionCents returns the cents part of a fixed-point amount, "35.35" -> 35.
// Only the fractional digits are kept, so amounts of any length are exact.
func FractionCents(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, err
	}
	return d.Sub(d.Truncate(0)).Abs().Shift(2).IntPart(), nil
}

// ItemBonus returns ceil(price * 0.2) computed exactly (no binary floats),
// e.g. "6.49" -> 1.298 -> 2.
func ItemBonus(price string) (int64, error) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return 0, err
	}
	bonus := d.Mul(itemBonusRate).Ceil()
	if bonus.GreaterThan(maxPoints) || bonus.IsNegative() {
		return 0, ErrAmountOutOfRange
	}
	return bonus.IntPart(), nil
}
