package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS allows the configured browser origins to call the API and read CSV downloads.
// A "*" origin allows any origin without credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	})
}
