package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestQueryCacheMissThenHit(t *testing.T) {
	c := NewQueryCache()

	_, ok := c.Get("k")
	require.False(t, ok)

	c.Set("k", "v", time.Second)
	value, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", value)
}

func TestQueryCacheExpiry(t *testing.T) {
	clock := newFakeClock()
	c := NewQueryCache(WithClock(clock.Now))

	c.Set("k", "v", time.Millisecond)
	clock.Advance(2 * time.Millisecond)

	_, ok := c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.Len(), "expired entry should be evicted on read")
}

func TestQueryCacheExpiryBoundaryIsMiss(t *testing.T) {
	clock := newFakeClock()
	c := NewQueryCache(WithClock(clock.Now))

	c.Set("k", "v", time.Minute)
	clock.Advance(time.Minute - time.Nanosecond)
	_, ok := c.Get("k")
	require.True(t, ok)

	clock.Advance(time.Nanosecond)
	_, ok = c.Get("k")
	require.False(t, ok)
}

func TestQueryCacheSetOverwritesAndRefreshesTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewQueryCache(WithClock(clock.Now))

	c.Set("k", "old", time.Minute)
	clock.Advance(50 * time.Second)
	c.Set("k", "new", time.Minute)
	clock.Advance(50 * time.Second)

	value, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "new", value)
}

func TestQueryCachePrefixInvalidation(t *testing.T) {
	c := NewQueryCache()
	c.Set("models:user:1:page:1", "A", time.Minute)
	c.Set("models:user:1:page:2", "B", time.Minute)
	c.Set("models:user:2:page:1", "C", time.Minute)

	removed := c.Invalidate("models:user:1*")
	require.Equal(t, 2, removed)

	_, ok := c.Get("models:user:1:page:1")
	require.False(t, ok)
	_, ok = c.Get("models:user:1:page:2")
	require.False(t, ok)
	value, ok := c.Get("models:user:2:page:1")
	require.True(t, ok)
	require.Equal(t, "C", value)
}

func TestQueryCacheExactInvalidation(t *testing.T) {
	c := NewQueryCache()
	c.Set("annotations:model:m1", 1, time.Minute)
	c.Set("annotations:model:m10", 2, time.Minute)

	require.Equal(t, 1, c.Invalidate("annotations:model:m1"))
	_, ok := c.Get("annotations:model:m10")
	require.True(t, ok)

	require.Equal(t, 0, c.Invalidate("annotations:model:m1"), "second invalidation is a no-op")
	require.Equal(t, 0, c.Invalidate("nothing:*"))
}

func TestOwnerPatternDoesNotSpillToLongerIDs(t *testing.T) {
	c := NewQueryCache()
	c.Set(ModelListKey("1", 1, 50), "A", time.Minute)
	c.Set(ModelListKey("10", 1, 50), "B", time.Minute)

	require.Equal(t, 1, c.Invalidate(ModelListPattern("1")))
	_, ok := c.Get(ModelListKey("10", 1, 50))
	require.True(t, ok)
}

func TestRemember(t *testing.T) {
	c := NewQueryCache()
	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	first, err := Remember(c, "projects:user:u:page:1:limit:50", time.Minute, load)
	require.NoError(t, err)
	second, err := Remember(c, "projects:user:u:page:1:limit:50", time.Minute, load)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	c := NewQueryCache()
	boom := errors.New("db down")

	_, err := Remember(c, "stats:user:u", time.Minute, func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, c.Len())

	value, err := Remember(c, "stats:user:u", time.Minute, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	require.Equal(t, 7, value)
}

func TestQueryCacheConcurrentAccess(t *testing.T) {
	c := NewQueryCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := ModelListKey("u", i%4, 50)
			c.Set(key, i, time.Minute)
			c.Get(key)
			c.Invalidate(ModelListPattern("u"))
		}(i)
	}
	wg.Wait()
}

func TestNilQueryCacheIsSafe(t *testing.T) {
	var c *QueryCache
	c.Set("k", 1, time.Minute)
	_, ok := c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.Invalidate("k*"))

	value, err := Remember(c, "k", time.Minute, func() (int, error) { return 3, nil })
	require.NoError(t, err)
	require.Equal(t, 3, value)
}
