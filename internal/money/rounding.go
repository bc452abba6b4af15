package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hanko-field/bizdoc/internal/domain"
)

// RoundingMode selects how fractional minor units are resolved.
type RoundingMode string

const (
	// HalfEven rounds ties to the nearest even unit so repeated recalculation carries no bias.
	HalfEven RoundingMode = "half_even"
	// HalfUp rounds ties away from zero.
	HalfUp RoundingMode = "half_up"
)

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ParseRoundingMode accepts "half_even"/"bankers" and "half_up".
func ParseRoundingMode(raw string) (RoundingMode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "half_even", "half-even", "bankers":
		return HalfEven, true
	case "half_up", "half-up":
		return HalfUp, true
	}
	return "", false
}

// Round resolves a fractional minor-unit amount to an integer.
func Round(value decimal.Decimal, mode RoundingMode) (int64, error) {
	var rounded decimal.Decimal
	if mode == HalfUp {
		rounded = value.Round(0)
	} else {
		rounded = value.RoundBank(0)
	}
	if rounded.GreaterThan(maxMinor) || rounded.LessThan(minMinor) {
		return 0, domain.ErrCalculationOverflow
	}
	return rounded.IntPart(), nil
}

// Multiply returns round(quantity × rate).
func Multiply(quantity decimal.Decimal, rate int64, mode RoundingMode) (int64, error) {
	return Round(quantity.Mul(decimal.NewFromInt(rate)), mode)
}

// Percent returns round(amount × pct / 100).
func Percent(amount int64, pct decimal.Decimal, mode RoundingMode) (int64, error) {
	return Round(decimal.NewFromInt(amount).Mul(pct).Shift(-2), mode)
}

// AddChecked adds two minor-unit amounts, failing instead of wrapping.
func AddChecked(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, domain.ErrCalculationOverflow
	}
	return a + b, nil
}
