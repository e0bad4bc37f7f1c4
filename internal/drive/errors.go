// Package drive defines the provider capability set used by the HTTP layer
// and its two implementations: a live Google Drive v3 client and an
// in-memory mock that enforces the same validation and error taxonomy.
package drive

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for provider failure classification.
// Use errors.Is(err, drive.ErrNotFound) to check.
var (
	ErrValidation   = errors.New("drive: invalid input")
	ErrBadRequest   = errors.New("drive: bad request")
	ErrUnauthorized = errors.New("drive: unauthorized")
	ErrNotFound     = errors.New("drive: not found")
	ErrUpstream     = errors.New("drive: upstream error")
)

// ProviderError wraps a sentinel error with the failing operation, the HTTP
// status reported by the provider (0 for transport failures) and the
// provider's message.
type ProviderError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("drive: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("drive: %s: %s", e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Detail returns the message shown to end users.
func (e *ProviderError) Detail() string {
	return e.Message
}

// classifyStatus maps a provider HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= http.StatusBadRequest && code < http.StatusInternalServerError:
		// 408 is a provider-side timeout, not a malformed request.
		if code == http.StatusRequestTimeout {
			return ErrUpstream
		}

		return ErrBadRequest
	case code >= http.StatusInternalServerError:
		return ErrUpstream
	default:
		return nil
	}
}

// translate converts an error returned by the Drive API client into a
// *ProviderError. Already-classified errors pass through unchanged.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		sentinel := classifyStatus(gerr.Code)
		if sentinel == nil {
			sentinel = ErrUpstream
		}

		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}

		return &ProviderError{Op: op, StatusCode: gerr.Code, Message: msg, Err: sentinel}
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return &ProviderError{
			Op:      op,
			Message: fmt.Sprintf("upload exceeds the %d byte limit", maxBytes.Limit),
			Err:     ErrBadRequest,
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ProviderError{Op: op, Message: "provider timed out", Err: ErrUpstream}
	}

	return &ProviderError{Op: op, Message: "provider unreachable", Err: fmt.Errorf("%w: %w", ErrUpstream, err)}
}

// notFound builds the error returned for unknown item ids.
func notFound(op, id string) error {
	return &ProviderError{
		Op:         op,
		StatusCode: http.StatusNotFound,
		Message:    "File not found: " + id,
		Err:        ErrNotFound,
	}
}

// badRequest builds a provider-style rejection.
func badRequest(op, msg string) error {
	return &ProviderError{Op: op, StatusCode: http.StatusBadRequest, Message: msg, Err: ErrBadRequest}
}
