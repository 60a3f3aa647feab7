package httpclient

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/igsr/popdex/internal/domain"
)

// RateLimit delays each request until limiter grants a token. A nil limiter
// disables the decorator. Waiting respects the request context; a wait that
// cannot finish before the deadline fails with domain.ErrRateLimited.
func RateLimit(limiter *rate.Limiter) Decorator {
	return func(next Doer) Doer {
		if limiter == nil {
			return next
		}
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				if ctxErr := req.Context().Err(); ctxErr != nil {
					return nil, fmt.Errorf("rate limit wait: %w", ctxErr)
				}
				return nil, fmt.Errorf("rate limit wait: %w: %w", domain.ErrRateLimited, err)
			}
			return next.Do(req)
		})
	}
}
