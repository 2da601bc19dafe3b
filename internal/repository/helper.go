package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the fixed-width UTC layout used for every stored timestamp.
// Fixed width keeps lexical ORDER BY and range comparisons chronological.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse("2006-01-02", str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return returnTime.UTC(), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
