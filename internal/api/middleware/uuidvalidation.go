// Package middleware provides HTTP middleware for request validation, CORS and logging.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/validation"
)

// RequireUUIDParam rejects requests whose URL parameter param is missing or not a UUID
// with 400 Bad Request.
//
// Example usage in router:
//
//	r.Route("/{uuid}", func(r chi.Router) {
//	    r.Use(middleware.RequireUUIDParam("uuid"))
//	    r.Put("/", handler.UpdateTransaction)
//	})
func RequireUUIDParam(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, param)
			if id == "" {
				response.RespondError(w, http.StatusBadRequest, param+" is required", "")
				return
			}
			if err := validation.ValidateUUID(id); err != nil {
				response.RespondError(w, http.StatusBadRequest, "invalid UUID format", err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
