package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/igsr/popdex/internal/domain"
)

// maxErrorBody bounds how much of a failure response is kept for the message.
const maxErrorBody = 4 << 10

// Errors turns non-2xx responses into *domain.HTTPError and transport
// failures into domain.ErrUnavailable. Successful responses pass through.
func Errors() Decorator {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.Do(req)
			if err != nil {
				return nil, classifyTransportError(req, err)
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, domain.NewHTTPError(resp.StatusCode, extractMessage(body))
		})
	}
}

func classifyTransportError(req *http.Request, err error) error {
	switch {
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, domain.ErrRateLimited):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	default:
		return fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, domain.ErrUnavailable, err)
	}
}

// extractMessage pulls a human-readable reason out of an error body. The
// portal answers with {"error": ...}, proxies with {"message": ...} or
// {"detail": ...}; anything else is returned trimmed.
func extractMessage(body []byte) string {
	var parsed struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if msg := errorField(parsed.Error); msg != "" {
			return msg
		}
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Detail != "" {
			return parsed.Detail
		}
	}
	return strings.TrimSpace(string(body))
}

// errorField reads "error" as a string or as {"reason": ...}.
func errorField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Reason string `json:"reason"`
		Type   string `json:"type"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Reason != "" {
			return obj.Reason
		}
		return obj.Type
	}
	return ""
}
