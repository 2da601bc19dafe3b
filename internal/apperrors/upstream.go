package apperrors

import (
	"errors"
	"fmt"
)

// Upstream error kinds. Every UpstreamError unwraps to exactly one of these.
var (
	ErrUpstreamAuth        = errors.New("upstream authentication failed")
	ErrUpstreamForbidden   = errors.New("upstream access forbidden")
	ErrUpstreamRateLimited = errors.New("upstream rate limit exceeded")
	ErrUpstreamServer      = errors.New("upstream server error")

	// ErrUpstreamUnavailable covers network failures and timeouts. It is the only retryable kind.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// UpstreamError describes a failed call to a third-party API.
type UpstreamError struct {
	Service    string
	Kind       error
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Service, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Service, e.Kind, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Kind
}

// NewUpstreamError builds an UpstreamError of the given kind.
func NewUpstreamError(service string, kind error, status int, msg string) *UpstreamError {
	return &UpstreamError{
		Service:    service,
		Kind:       kind,
		StatusCode: status,
		Message:    msg,
	}
}

// KindForStatus maps a non-200 HTTP status code to its upstream error kind.
func KindForStatus(status int) error {
	switch status {
	case 401:
		return ErrUpstreamAuth
	case 403:
		return ErrUpstreamForbidden
	case 429:
		return ErrUpstreamRateLimited
	default:
		return ErrUpstreamServer
	}
}

// IsRetryable reports whether err is a transient upstream failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// UserMessage returns a user-readable message for a broker failure.
func UserMessage(err error) string {
	var upstream *UpstreamError
	service := "Broker"
	if errors.As(err, &upstream) && upstream.Service != "" {
		service = upstream.Service
	}

	switch {
	case errors.Is(err, ErrUpstreamAuth):
		return fmt.Sprintf("%s API authentication failed. Please check your API credentials.", service)
	case errors.Is(err, ErrUpstreamForbidden):
		return fmt.Sprintf("%s API access forbidden. Check API key permissions.", service)
	case errors.Is(err, ErrUpstreamRateLimited):
		return fmt.Sprintf("%s API rate limit exceeded. Please try again later.", service)
	case errors.Is(err, ErrUpstreamUnavailable):
		return fmt.Sprintf("%s API is unreachable. Please try again later.", service)
	case errors.Is(err, ErrUpstreamServer):
		return fmt.Sprintf("%s API returned an error.", service)
	default:
		return err.Error()
	}
}
