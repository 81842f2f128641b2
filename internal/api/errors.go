// Package api provides HTTP handlers for the RouteBase payment coordination
// service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hmkhan10/routebase-payments/internal/middleware"
)

// Stable machine-readable error codes. Clients use the HTTP status to decide
// between "retry later" (429), "do not retry" (400, 409), and transient
// infrastructure failure (500, 503).
const (
	ErrCodeValidation      = "validation_error"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeInProgress      = "in_progress"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeInternal        = "internal_error"
	ErrCodeCartLimit       = "cart_limit_exceeded"
	ErrCodeBackendDown     = "backend_unavailable"
	ErrCodeSessionNotFound = "session_not_found"
)

// ErrorResponse is the flat error body used by the storefront wire contract:
// {"error": "Human readable message"}.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes the flat storefront error body with the given status.
// The code is stored on the context so the logging middleware records it.
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	ctx = middleware.SetErrorCode(ctx, code)
	middleware.UpdateResponseContext(w, ctx)

	writeJSON(w, ctx, status, ErrorResponse{Error: message})
}

// writeJSON marshals v and writes it with the given status. Marshal failures
// fall back to a plain 500; encode-after-header failures can only be logged.
func writeJSON(w http.ResponseWriter, ctx context.Context, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}
