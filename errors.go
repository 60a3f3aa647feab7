package popdex

import "github.com/igsr/popdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrBadRequest        = domain.ErrBadRequest
	ErrUnauthorized      = domain.ErrUnauthorized
	ErrRateLimited       = domain.ErrRateLimited
	ErrUpstream          = domain.ErrUpstream
	ErrUnavailable       = domain.ErrUnavailable
	ErrTimeout           = domain.ErrTimeout
	ErrMalformedResponse = domain.ErrMalformedResponse
)

// HTTPError is a non-2xx backend response. It unwraps to one of the
// sentinels above; use errors.As to read the status and message.
type HTTPError = domain.HTTPError
