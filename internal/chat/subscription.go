package chat

import (
	"errors"
	"sync"
)

// ErrSubscriptionClosed is returned when a subscription ends before the
// expected snapshot arrived.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Subscription is a live binding to a collection. Every update carries the
// complete collection; an update not yet received is replaced by a newer one.
type Subscription[T any] struct {
	mu      sync.Mutex
	updates chan T
	done    chan struct{}
	closed  bool
	onClose func()
}

// NewSubscription returns an open subscription. onClose, if non-nil, runs
// once when the consumer unsubscribes.
func NewSubscription[T any](onClose func()) *Subscription[T] {
	return &Subscription[T]{
		updates: make(chan T, 1),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// Updates delivers snapshots. The channel is closed when the subscription
// ends, either through Unsubscribe or because the producer went away.
func (s *Subscription[T]) Updates() <-chan T {
	return s.updates
}

// Done is closed when the subscription ends.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Publish hands v to the consumer, replacing any snapshot it has not read
// yet. It never blocks and reports false once the subscription has ended.
func (s *Subscription[T]) Publish(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case <-s.updates:
	default:
	}
	s.updates <- v
	return true
}

// Close ends the subscription from the producer side.
func (s *Subscription[T]) Close() {
	s.close()
}

// Unsubscribe ends the subscription from the consumer side. Once it returns
// nothing more is delivered. Calling it again is a no-op.
func (s *Subscription[T]) Unsubscribe() {
	if s.close() && s.onClose != nil {
		s.onClose()
	}
}

func (s *Subscription[T]) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.closed = true

	// drop whatever is pending
	select {
	case <-s.updates:
	default:
	}
	close(s.updates)
	close(s.done)
	return true
}
