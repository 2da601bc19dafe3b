// Package handlers adapts HTTP requests to the service layer.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/validation"
)

// maxBodyBytes bounds request bodies; credential files and transactions are small.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into a new T.
func parseJSON[T any](r *http.Request) (T, error) {
	var req T
	if r.Body == nil {
		return req, errors.New("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid JSON: %w", err)
	}
	return req, nil
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrTransactionNotFound),
		errors.Is(err, apperrors.ErrBrokerConnectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrEncryptionUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrUpstreamRateLimited):
		return http.StatusTooManyRequests
	}
	var upstream *apperrors.UpstreamError
	if errors.As(err, &upstream) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondServiceError writes err with the status statusFor assigns to it.
// message is used for internal errors; validation and upstream errors carry their own.
func respondServiceError(w http.ResponseWriter, err error, message string) {
	status := statusFor(err)

	var vErr *validation.Error
	var upstream *apperrors.UpstreamError
	switch {
	case errors.As(err, &vErr):
		response.RespondError(w, status, "validation failed", vErr.Fields)
	case errors.As(err, &upstream):
		response.RespondError(w, status, apperrors.UserMessage(err), err.Error())
	case status == http.StatusInternalServerError:
		response.RespondError(w, status, message, err.Error())
	default:
		response.RespondError(w, status, err.Error(), "")
	}
}

// queryInt reads an optional integer query parameter; absent reads as zero.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.NewError(apperrors.ErrValidation, key, key+" must be an integer")
	}
	return n, nil
}

// respondCSV renders a CSV attachment. The body is buffered so a failure can still be
// reported as a JSON error.
func respondCSV(w http.ResponseWriter, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToExport.Error())
		return
	}

	response.RespondAttachment(w, "text/csv; charset=utf-8", filename, buf.Bytes())
}
