package middleware

import (
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger returns a middleware that logs every HTTP request with its status and duration.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	log = log.With().Str("component", "http").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			// Strip CR/LF from user-supplied values.
			sanitize := strings.NewReplacer("\n", "", "\r", "").Replace

			event := log.Info()
			switch {
			case wrapped.statusCode >= 500:
				event = log.Error()
			case wrapped.statusCode >= 400:
				event = log.Warn()
			}
			event.
				Str("method", sanitize(r.Method)).
				Str("path", sanitize(r.URL.Path)).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
