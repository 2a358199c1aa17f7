package ratelimit

import "context"

// RateLimiter bounds how often a keyed caller may act within a window.
type RateLimiter interface {
	// Allow records one attempt for key and reports whether it is within
	// the limit.
	Allow(ctx context.Context, key string) (bool, error)
}
