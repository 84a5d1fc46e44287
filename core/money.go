package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundHalfUpCents rounds a cent amount to an integer, halves away from zero.
// Monetary amounts here are never negative, so this is round-half-up.
func RoundHalfUpCents(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}

// PercentOfCents returns round_half_up(percent/100 * amountCents).
func PercentOfCents(amountCents int64, percent decimal.Decimal) int64 {
	if amountCents <= 0 || !percent.IsPositive() {
		return 0
	}
	return RoundHalfUpCents(decimal.NewFromInt(amountCents).Mul(percent).Div(hundred))
}

// ParsePercent parses a percentage in [0, 100].
func ParsePercent(value string) (decimal.Decimal, error) {
	percent, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("core: invalid percentage %q: %w", value, err)
	}
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("core: percentage %s out of range [0,100]", percent.String())
	}
	return percent, nil
}

// FormatCents renders an amount for display, e.g. "$100.00" or "12.50 EUR".
func FormatCents(amountCents int64, currency string) string {
	value := decimal.New(amountCents, -2).StringFixed(2)
	switch strings.ToLower(strings.TrimSpace(currency)) {
	case "usd", "":
		return "$" + value
	case "eur":
		return "€" + value
	case "gbp":
		return "£" + value
	default:
		return value + " " + strings.ToUpper(currency)
	}
}
