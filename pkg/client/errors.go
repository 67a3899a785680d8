package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork means the backend could not serve the request: a transport
	// failure, a timeout, throttling, or a 5xx from the server or a proxy.
	ErrNetwork = errors.New("network error")
	// ErrInvalidCredentials means the backend rejected an email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidCode means a reset code was wrong, expired, or malformed.
	ErrInvalidCode = errors.New("invalid reset code")
	// ErrValidation means the request body was rejected, locally or by the backend.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized means a protected call had a missing or expired token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the addressed account or resource does not exist.
	ErrNotFound = errors.New("not found")
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
	// Kind is the sentinel this response maps to. It is never nil.
	Kind error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match the sentinel for this status.
func (e *HTTPError) Unwrap() error {
	return e.Kind
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// Message returns the backend-provided text of err when it carries one,
// and err.Error() otherwise. Forms display this verbatim.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return err.Error()
}

// defaultKind classifies a status no endpoint table claimed.
func defaultKind(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return ErrNetwork
	}
	return ErrValidation
}
