package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundingPlaces is the number of decimal places of every monetary and percent output.
const RoundingPlaces = 2

var hundred = decimal.NewFromInt(100)

// round rounds a value to RoundingPlaces using the "round half up" (away from zero) approach.
// Rounding is applied once, at the end of a computation, never to intermediate sums.
//
// Example:
//
//	round(123.456789)  // returns 123.46
//	round(0.005)       // returns 0.01
//	round(1.994)       // returns 1.99
func round(value decimal.Decimal) decimal.Decimal {
	return value.Round(RoundingPlaces)
}

// percentOf returns 100 * part / base, or zero when base is not positive.
func percentOf(part, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(base)
}

// startOfDay truncates t to midnight UTC.
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
