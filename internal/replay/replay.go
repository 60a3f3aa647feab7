// Package replay provides a multicast value holder that replays the latest
// value to every subscriber, including ones that arrive after it was set.
package replay

import (
	"context"
	"sync"
)

// Notification is one delivery to a subscriber: a value or a terminal error.
type Notification[T any] struct {
	Value T
	Err   error
}

// Subject holds the latest published value (a replay buffer of one).
// A failed subject is terminal: later publishes are dropped.
type Subject[T any] struct {
	mu      sync.Mutex
	version uint64
	value   T
	err     error
	changed chan struct{}
}

// NewSubject creates an empty subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{changed: make(chan struct{})}
}

// Publish replaces the latest value and wakes all waiters.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.value = v
	s.version++
	s.notifyLocked()
}

// Fail terminates the subject with err.
func (s *Subject[T]) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = err
	s.version++
	s.notifyLocked()
}

func (s *Subject[T]) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Latest returns the current value without blocking. ok is false until the
// first publish.
func (s *Subject[T]) Latest() (v T, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return v, false, s.err
	}
	return s.value, s.version > 0, nil
}

// Wait blocks until a value or an error is available, or ctx is done.
func (s *Subject[T]) Wait(ctx context.Context) (T, error) {
	for {
		s.mu.Lock()
		if s.err != nil {
			err := s.err
			s.mu.Unlock()
			var zero T
			return zero, err
		}
		if s.version > 0 {
			v := s.value
			s.mu.Unlock()
			return v, nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ch:
		}
	}
}

// Subscribe returns a channel that first receives the latest value (if any)
// and then every later one. Slow subscribers skip intermediate values and see
// only the newest. The channel closes after a terminal error or when ctx is done.
func (s *Subject[T]) Subscribe(ctx context.Context) <-chan Notification[T] {
	out := make(chan Notification[T], 1)
	go func() {
		defer close(out)
		var seen uint64
		for {
			s.mu.Lock()
			version, value, err, ch := s.version, s.value, s.err, s.changed
			s.mu.Unlock()

			if version != seen {
				seen = version
				n := Notification[T]{Value: value, Err: err}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
				if err != nil {
					return
				}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case <-ch:
			}
		}
	}()
	return out
}
