package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/igsr/popdex/internal/domain"
)

// Timeout fails a request with domain.ErrTimeout when no complete response
// arrives within d. The deadline also covers reading the body, so the body
// returned to the caller releases the deadline on Close.
func Timeout(d time.Duration) Decorator {
	return func(next Doer) Doer {
		if d <= 0 {
			return next
		}
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			ctx, cancel := context.WithTimeout(req.Context(), d)
			resp, err := next.Do(req.WithContext(ctx))
			if err != nil {
				cancel()
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return nil, fmt.Errorf("%s %s after %s: %w", req.Method, req.URL.Path, d, domain.ErrTimeout)
				}
				return nil, err
			}
			resp.Body = &deadlineBody{ReadCloser: resp.Body, ctx: ctx, cancel: cancel, limit: d}
			return resp, nil
		})
	}
}

// deadlineBody maps a deadline hit during body reads to domain.ErrTimeout.
type deadlineBody struct {
	io.ReadCloser
	ctx    context.Context
	cancel context.CancelFunc
	limit  time.Duration
}

func (b *deadlineBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && errors.Is(b.ctx.Err(), context.DeadlineExceeded) {
		return n, fmt.Errorf("reading body after %s: %w", b.limit, domain.ErrTimeout)
	}
	return n, err //nolint:wrapcheck // io.EOF must pass through unwrapped
}

func (b *deadlineBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close() //nolint:wrapcheck // delegating to underlying body
}
