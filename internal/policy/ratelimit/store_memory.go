package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryCounterStore implements CounterStore for unit tests and
// single-process deployments. Expiry is checked lazily on access, which is
// enough because the limiter re-derives the key every window anyway.
type InMemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	clock    func() time.Time
}

type counter struct {
	count     int64
	expiresAt time.Time
}

// InMemoryOption configures an InMemoryCounterStore.
type InMemoryOption func(*InMemoryCounterStore)

// WithClock injects a clock for expiry tests.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(s *InMemoryCounterStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewInMemoryCounterStore creates an empty in-memory counter store.
func NewInMemoryCounterStore(opts ...InMemoryOption) *InMemoryCounterStore {
	s := &InMemoryCounterStore{
		counters: make(map[string]*counter),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IncrementAndExpire increments key and resets its TTL under one lock, the
// in-process equivalent of the Redis MULTI/EXEC pair.
func (s *InMemoryCounterStore) IncrementAndExpire(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	c := s.counters[key]
	if c == nil || now.After(c.expiresAt) {
		c = &counter{}
		s.counters[key] = c
	}
	c.count++
	c.expiresAt = now.Add(ttl)
	return c.count, nil
}

// Len reports the number of live counters, for tests.
func (s *InMemoryCounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}
