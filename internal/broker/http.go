package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
)

// getJSON performs an authenticated GET and returns the body of a 200 response.
// authorize sets the credentials on the request right before it is sent.
// Non-200 responses and transport failures are returned as *apperrors.UpstreamError.
func getJSON(ctx context.Context, client *http.Client, service, endpoint string, authorize func(*http.Request) error, log zerolog.Logger) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if err := authorize(req); err != nil {
		return nil, apperrors.NewUpstreamError(service, apperrors.ErrUpstreamAuth, 0, err.Error())
	}

	resp, err := client.Do(req)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "request timed out"
		}
		return nil, apperrors.NewUpstreamError(service, apperrors.ErrUpstreamUnavailable, 0, msg)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamError(service, apperrors.ErrUpstreamUnavailable, resp.StatusCode, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("url", req.URL.Path).
			Str("body", truncate(data, maxLoggedBody)).
			Msg("broker request failed")
		return nil, apperrors.NewUpstreamError(service, apperrors.KindForStatus(resp.StatusCode), resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return data, nil
}
