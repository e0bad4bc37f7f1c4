package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tonimelisma/drive-explorer/internal/auth"
	"github.com/tonimelisma/drive-explorer/internal/drive"
)

const (
	detailNotAuthenticated = "Not authenticated"
	detailInternal         = "Internal server error"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

// statusFor maps an error to its HTTP status and user-facing detail.
// Unclassified errors map to 500 with a generic detail.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated), errors.Is(err, drive.ErrUnauthorized):
		return http.StatusUnauthorized, detailNotAuthenticated
	case errors.Is(err, auth.ErrAuth):
		return http.StatusUnauthorized, "Authentication failed: " + detailOf(err, auth.ErrAuth)
	case errors.Is(err, drive.ErrValidation):
		return http.StatusBadRequest, detailOf(err, drive.ErrValidation)
	case errors.Is(err, drive.ErrNotFound):
		return http.StatusNotFound, detailOf(err, drive.ErrNotFound)
	case errors.Is(err, drive.ErrBadRequest):
		return http.StatusBadRequest, detailOf(err, drive.ErrBadRequest)
	case errors.Is(err, drive.ErrUpstream):
		return http.StatusBadGateway, "Upstream provider error: " + detailOf(err, drive.ErrUpstream)
	case errors.Is(err, auth.ErrUpstream):
		return http.StatusBadGateway, "Upstream provider error: " + detailOf(err, auth.ErrUpstream)
	default:
		return http.StatusInternalServerError, detailInternal
	}
}

// detailOf extracts the human-readable part of err. Provider errors carry
// their own message; locally wrapped sentinels have it after the sentinel
// prefix.
func detailOf(err, sentinel error) string {
	var pe *drive.ProviderError
	if errors.As(err, &pe) {
		return pe.Detail()
	}

	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}

	return msg
}

// writeError writes err as {"detail": ...}. Server-side failures are logged
// in full; the client only sees the generic detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)

	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}

	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		s.logger.Error("request failed", attrs...)
	case status == http.StatusBadGateway:
		s.logger.Warn("provider call failed", attrs...)
	default:
		s.logger.Debug("request rejected", attrs...)
	}

	writeJSON(w, status, errorBody{Detail: detail})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
