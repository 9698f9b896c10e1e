package ports

import "context"

// RequestLimiter throttles payment attempts per caller over a sliding time
// window. It is injected so the in-process implementation can be swapped for
// a distributed store without touching call sites.
type RequestLimiter interface {
	// Allow records an attempt for key and reports whether it is within the
	// configured window limit.
	Allow(ctx context.Context, key string) (bool, error)
}
