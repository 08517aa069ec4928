// Package api provides HTTP handlers for the agentdeck API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/agentdeck/internal/identity"
	"github.com/ashureev/agentdeck/internal/shared"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// FailureError maps an application error to a client-facing response.
// Validation, not-found, and conflict conditions surface with a short
// message; everything else is logged with full detail and returned as a
// generic 500 so no internal error detail crosses the boundary.
func FailureError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, shared.ErrInvalidInput):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrConflict):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		Error(w, http.StatusForbidden, "forbidden")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// RequirePermission wraps a handler so that only principals holding the
// permission code reach it. Unauthenticated requests carry an empty
// grant set and are denied the same way as principals lacking the
// capability: a permission failure is always 403.
func RequirePermission(code string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !identity.GrantsFromContext(r.Context()).Has(code) {
			Error(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	}
}
