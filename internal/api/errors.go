package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sony/gobreaker"
)

var (
	// ErrNotAuthenticated is returned when an authenticated call is made
	// without a stored credential.
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrRejected      = errors.New("rejected")
	ErrRequestFailed = errors.New("request failed")
)

// StatusError is returned for every non-2xx response. It wraps one of the
// sentinel errors above so callers can branch with errors.Is.
type StatusError struct {
	Op         string // human-readable failure, e.g. "Failed to fetch users"
	StatusCode int
	Detail     string // server-provided detail, if any
	kind       error
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

func newStatusError(op string, statusCode int, body []byte) *StatusError {
	return &StatusError{
		Op:         op,
		StatusCode: statusCode,
		Detail:     parseDetail(body),
		kind:       kindForStatus(statusCode),
	}
}

func kindForStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrRejected
	}
	return ErrRequestFailed
}

// parseDetail extracts the "detail" field of an error body. Validation errors
// carry a list there, which is reported as raw JSON.
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s
	}
	return string(env.Detail)
}

// IsUnauthorized reports whether err means the credential is missing or was
// rejected by the server.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotAuthenticated)
}

// classifyError categorizes a transport error for metrics.
func classifyError(err error) string {
	if errors.Is(err, ErrNotAuthenticated) {
		return "unauthenticated"
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "breaker_open"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		if netErr.Op == "dial" {
			return "connection_refused"
		}
		return "network"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	return "other"
}
