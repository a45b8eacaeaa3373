package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/charlesng35/web3drender/pkg/metrics"
)

type queryEntry struct {
	value     any
	expiresAt time.Time
}

// QueryCache memoises read query results in process memory. Entries expire
// lazily: an expired entry is dropped by the read that discovers it.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]queryEntry
	clock   func() time.Time
}

// QueryCacheOption customises a QueryCache.
type QueryCacheOption func(*QueryCache)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) QueryCacheOption {
	return func(c *QueryCache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewQueryCache constructs an empty cache.
func NewQueryCache(opts ...QueryCacheOption) *QueryCache {
	c := &QueryCache{
		entries: make(map[string]queryEntry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value stored under key.
func (c *QueryCache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		metrics.QueryCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if !c.clock().Before(entry.expiresAt) {
		delete(c.entries, key)
		metrics.QueryCacheEntries.Set(float64(len(c.entries)))
		metrics.QueryCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.QueryCacheLookups.WithLabelValues("hit").Inc()
	return entry.value, true
}

// Set stores value under key for ttl, replacing any existing entry.
func (c *QueryCache) Set(key string, value any, ttl time.Duration) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = queryEntry{value: value, expiresAt: c.clock().Add(ttl)}
	metrics.QueryCacheEntries.Set(float64(len(c.entries)))
}

// Invalidate removes cached entries. A pattern ending in "*" removes every
// key starting with the text before it; any other pattern removes that exact
// key. It returns the number of entries removed.
func (c *QueryCache) Invalidate(pattern string) int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	mode := "exact"
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		mode = "prefix"
		for key := range c.entries {
			if strings.HasPrefix(key, prefix) {
				delete(c.entries, key)
				removed++
			}
		}
	} else if _, ok := c.entries[pattern]; ok {
		delete(c.entries, pattern)
		removed = 1
	}

	if removed > 0 {
		metrics.QueryCacheInvalidations.WithLabelValues(mode).Add(float64(removed))
		metrics.QueryCacheEntries.Set(float64(len(c.entries)))
	}
	return removed
}

// Len reports the number of held entries, expired ones included.
func (c *QueryCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Remember returns the cached value for key or computes, stores and returns
// it. Load errors are returned without caching. A cached value of another
// type is treated as a miss.
func Remember[T any](c *QueryCache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if cached, ok := c.Get(key); ok {
		if value, ok := cached.(T); ok {
			return value, nil
		}
	}

	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, value, ttl)
	return value, nil
}
