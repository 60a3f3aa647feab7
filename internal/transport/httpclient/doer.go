// Package httpclient composes the outgoing HTTP pipeline as a chain of Doer
// decorators: instrumentation, timeout, error classification, rate limiting.
package httpclient

import "net/http"

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Decorator wraps a Doer with extra behavior.
type Decorator func(next Doer) Doer

// Chain applies decorators so that the first one listed is the outermost.
func Chain(base Doer, decorators ...Decorator) Doer {
	d := base
	for i := len(decorators) - 1; i >= 0; i-- {
		if decorators[i] != nil {
			d = decorators[i](d)
		}
	}
	return d
}
