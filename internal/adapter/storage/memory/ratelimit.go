// Package memory holds in-process adapter implementations for single-node
// deployments.
package memory

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a mutex-guarded sliding-window request limiter keyed by
// caller identity. State lives for the process lifetime; swap in the Redis
// implementation for multi-node deployments.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing limit attempts per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow records an attempt for key and reports whether it fits the window.
func (l *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.attempts[key][:0]
	for _, at := range l.attempts[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= l.limit {
		l.attempts[key] = kept
		return false, nil
	}

	l.attempts[key] = append(kept, now)
	return true, nil
}
