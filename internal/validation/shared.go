package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
)

// Error collects field-level validation messages.
// It matches apperrors.ErrValidation, and Kind when set, under errors.Is.
type Error struct {
	Fields map[string]string
	Kind   error
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}

// Is reports whether target is ErrValidation or the specific Kind of this error.
func (e *Error) Is(target error) bool {
	if target == apperrors.ErrValidation {
		return true
	}
	return e.Kind != nil && errors.Is(e.Kind, target)
}

// NewError returns a single-field validation error of the given kind.
func NewError(kind error, field, msg string) *Error {
	return &Error{Fields: map[string]string{field: msg}, Kind: kind}
}
