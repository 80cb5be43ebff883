package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"panic-list/internal/app"
	"panic-list/internal/session"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps ApplicationService errors onto HTTP statuses.
// Only the order fetch is surfaced as an upstream failure; everything else the
// service absorbs never reaches here.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidRequest):
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
	case errors.Is(err, app.ErrUnauthenticated),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrInvalidToken):
		writeError(w, r, err.Error(), "UNAUTHORIZED", http.StatusUnauthorized)
	case errors.Is(err, session.ErrNoToken):
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
	case errors.Is(err, app.ErrOrderFetch):
		writeError(w, r, "could not load orders from the marketplace", "UPSTREAM_ERROR", http.StatusBadGateway)
	case errors.Is(err, r.Context().Err()) && r.Context().Err() != nil:
		writeError(w, r, "request cancelled", "CANCELLED", 499)
	default:
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
