// Package timeout bounds how long a caller waits for an external call.
//
// Hitting the deadline means "stop waiting", not "the call was stopped": the
// remote side may still complete the operation. Callers must treat
// ErrDeadline as an unknown outcome.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrDeadline = errors.New("deadline exceeded while waiting for call")

type result[T any] struct {
	val T
	err error
}

// Call runs fn with a context bounded by d and returns as soon as either fn
// finishes or the deadline passes. A non-positive d only honours ctx.
func Call[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, errors.New("timeout: nil func")
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if d > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d)
	}
	defer cancel()

	// buffered so the goroutine can always deliver and exit after we stop waiting
	ch := make(chan result[T], 1)
	go func() {
		v, err := fn(callCtx)
		ch <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("%w after %s", ErrDeadline, d)
		}
		return zero, callCtx.Err()
	}
}
