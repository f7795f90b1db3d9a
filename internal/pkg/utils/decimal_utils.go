package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FromBaseUnits converts a raw on-chain amount (integer string in the asset's
// smallest unit) to human units using the asset's decimal shift.
// Example: raw="123450000", decimals=8 => 1.2345
func FromBaseUnits(raw string, decimals uint8) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid base-unit amount %q: %w", raw, err)
	}
	return d.Shift(-int32(decimals)), nil
}

// RoundToCents rounds a USD amount to two decimal places and returns it as a
// float64 for the JSON boundary.
func RoundToCents(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// MulPrice multiplies a balance by a float64 USD price without going through
// float64 on the balance side.
func MulPrice(balance decimal.Decimal, priceUSD float64) decimal.Decimal {
	return balance.Mul(decimal.NewFromFloat(priceUSD))
}
