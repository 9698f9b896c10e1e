// Package retry provides bounded retries with exponential backoff for
// transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds a retried operation.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultPolicy suits short RPC reads.
var DefaultPolicy = Policy{
	Attempts:     3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
}

// Retryable reports whether an error is worth another attempt.
type Retryable func(error) bool

// Transient treats everything except context cancellation as retryable.
// Suitable only for idempotent operations.
func Transient(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn until it succeeds, the error is not retryable, the policy's
// attempts are exhausted, or ctx is done.
func Do[T any](ctx context.Context, policy Policy, retryable Retryable, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := policy.InitialDelay

	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == policy.Attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * policy.Multiplier)
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, fmt.Errorf("%d attempts exhausted: %w", policy.Attempts, lastErr)
}
