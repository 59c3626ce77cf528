package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type callResult[T any] struct {
	val T
	err error
}

// callWithTimeout runs fn on its own goroutine and waits at most d for it.
// When the budget runs out the call is abandoned: its context is cancelled
// but nothing waits for it, and a late result lands in the buffered channel
// and is dropped.
func callWithTimeout[T any](ctx context.Context, d time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ch := make(chan callResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- callResult[T]{err: fmt.Errorf("%s panicked: %v", op, r)}
			}
		}()
		v, err := fn(ctx)
		ch <- callResult[T]{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %s timed out after %s", ErrTimeout, op, d)
		}
		return zero, fmt.Errorf("%s: %w", op, ctx.Err())
	}
}
