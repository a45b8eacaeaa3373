package cache

import (
	"context"
	"time"
)

// Store keeps fixed-window counters shared across processes. It backs the
// HTTP rate limiters; query results never go through a Store.
type Store interface {
	// IncrementWithTTL bumps the counter for key, starting a new window of the
	// given length when none is active, and returns the count and the time
	// left in the window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Delete(ctx context.Context, keys ...string) error
}
