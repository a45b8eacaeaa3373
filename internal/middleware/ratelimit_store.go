package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/web3drender/internal/cache"
)

// RateStore coordinates fixed-window rate limiting counters.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
	Reset(ctx context.Context, key string) error
}

const memorySweepInterval = time.Minute

// memoryRateStore provides process-local rate limiting. Expired counters are
// swept lazily during Increment.
type memoryRateStore struct {
	mu        sync.Mutex
	data      map[string]*memoryCounter
	clock     func() time.Time
	nextSweep time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory rate store.
func NewMemoryRateStore() RateStore {
	return newMemoryRateStore(time.Now)
}

func newMemoryRateStore(clock func() time.Time) *memoryRateStore {
	return &memoryRateStore{
		data:  make(map[string]*memoryCounter),
		clock: clock,
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !now.Before(s.nextSweep) {
		for k, counter := range s.data {
			if !now.Before(counter.windowEnd) {
				delete(s.data, k)
			}
		}
		s.nextSweep = now.Add(memorySweepInterval)
	}

	counter, ok := s.data[key]
	if !ok || !now.Before(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}

func (s *memoryRateStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *memoryRateStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// storeRateStore adapts a shared cache.Store (database or valkey).
type storeRateStore struct {
	store cache.Store
}

// NewValkeyRateStore shares counters across instances through valkey.
func NewValkeyRateStore(store *cache.ValkeyStore) RateStore {
	if store == nil {
		return nil
	}
	return &storeRateStore{store: store}
}

// NewDatabaseRateStore keeps counters in the SQL database.
func NewDatabaseRateStore(store *cache.DatabaseStore) RateStore {
	if store == nil {
		return nil
	}
	return &storeRateStore{store: store}
}

func (s *storeRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(count), ttl, err
}

func (s *storeRateStore) Reset(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}
