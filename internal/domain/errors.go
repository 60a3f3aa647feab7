package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound signals that the backend has no record for the requested key.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest signals that the backend rejected the request body or query.
	ErrBadRequest = errors.New("bad request")
	// ErrUnauthorized signals that the backend refused access.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited signals a backend rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrUpstream signals any other non-2xx backend response.
	ErrUpstream = errors.New("upstream error")
	// ErrUnavailable signals a transport-level failure (connection refused, reset, DNS).
	ErrUnavailable = errors.New("backend unavailable")
	// ErrTimeout signals that no response arrived within the configured deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrMalformedResponse signals a response body without the expected envelope.
	ErrMalformedResponse = errors.New("malformed response")
)

// HTTPError is a classified non-2xx backend response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Kind().Error(), e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Kind().Error(), e.Status, e.Message)
}

// Kind returns the sentinel the status maps to.
func (e *HTTPError) Kind() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return ErrBadRequest
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUpstream
	}
}

func (e *HTTPError) Unwrap() error { return e.Kind() }

// NewHTTPError creates a classified backend error.
func NewHTTPError(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}
