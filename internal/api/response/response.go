// Package response writes the API's JSON bodies, error envelopes and file downloads.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// RespondJSON writes data as JSON with status. A nil data writes only the status,
// as used for 204 No Content. The body is marshalled before the header goes out, so a
// value that cannot be encoded yields a 500 instead of a truncated body.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	if data == nil {
		w.WriteHeader(status)
		return
	}

	body, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to encode JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// RespondError writes an ErrorResponse. message is shown to users; details carries
// field errors or the underlying error text and is omitted when empty.
//
// Example:
//
//	response.RespondError(w, http.StatusBadRequest, "validation failed", vErr.Fields)
//	response.RespondError(w, http.StatusNotFound, "transaction not found", "")
func RespondError(w http.ResponseWriter, status int, message string, details any) {
	if s, ok := details.(string); ok && s == "" {
		details = nil
	}
	RespondJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// RespondAttachment writes body as a download named filename.
func RespondAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("failed to write attachment")
	}
}
