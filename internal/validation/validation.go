// Package validation checks request payloads before they reach the services.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidUUID is returned by ValidateUUID.
var ErrInvalidUUID = errors.New("invalid UUID format")

// ValidateUUID checks that id parses as a UUID.
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	return nil
}

// dateLayouts are tried in order. Layouts without a zone are read as UTC.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime reads a request date: a calendar day, RFC3339 with optional fraction, or a
// zone-less ISO timestamp.
func ParseTime(str string) (time.Time, error) {
	str = strings.TrimSpace(str)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339: %q", str)
}
