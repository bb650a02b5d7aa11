package events

import (
	"context"
	"errors"
)

// ErrStreamEnded is returned when a subscription ends before a match.
var ErrStreamEnded = errors.New("event stream ended before a match")

// SubscribeFunc opens a subscription that lasts until ctx is done.
type SubscribeFunc[T any] func(ctx context.Context) (<-chan T, error)

// Waiter is a single-use subscription that resolves on the first value
// accepted by its predicate.
type Waiter[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	ch     <-chan T
	match  func(T) bool
}

// Watch subscribes immediately, so nothing published after Watch returns
// can be missed, and returns a Waiter for the first match.
func Watch[T any](ctx context.Context, subscribe SubscribeFunc[T], match func(T) bool) (*Waiter[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	ch, err := subscribe(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Waiter[T]{ctx: ctx, cancel: cancel, ch: ch, match: match}, nil
}

// Wait blocks until the first matching value, then unsubscribes.
// It may be called once.
func (w *Waiter[T]) Wait() (T, error) {
	defer w.cancel()
	return AwaitOne(w.ctx, w.ch, w.match)
}

// Stop unsubscribes without waiting.
func (w *Waiter[T]) Stop() {
	w.cancel()
}

// AwaitOne reads from ch until match accepts a value.
func AwaitOne[T any](ctx context.Context, ch <-chan T, match func(T) bool) (T, error) {
	var zero T
	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case v, ok := <-ch:
			if !ok {
				if err := ctx.Err(); err != nil {
					return zero, err
				}
				return zero, ErrStreamEnded
			}
			if match == nil || match(v) {
				return v, nil
			}
		}
	}
}
