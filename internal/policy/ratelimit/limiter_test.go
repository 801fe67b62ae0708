package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) IncrementAndExpire(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, time.Second)
	assert.Error(t, err)

	_, err = New(NewInMemoryCounterStore(), 500*time.Millisecond)
	assert.Error(t, err)

	_, err = New(NewInMemoryCounterStore(), time.Second)
	assert.NoError(t, err)
}

func TestAllow_FixedWindowExhaustion(t *testing.T) {
	ctx := context.Background()
	limiter, err := New(NewInMemoryCounterStore(), time.Minute)
	require.NoError(t, err)

	now := time.Date(2026, 8, 1, 12, 0, 30, 0, time.UTC)
	const limit = 5
	for i := 0; i < limit; i++ {
		allowed, err := limiter.Allow(ctx, "alice", limit, now)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "alice", limit, now)
	require.NoError(t, err)
	assert.False(t, allowed, "request limit+1 must be denied within the same window")
}

func TestAllow_NewWindowResetsCount(t *testing.T) {
	ctx := context.Background()
	limiter, err := New(NewInMemoryCounterStore(), time.Second)
	require.NoError(t, err)

	now := time.Date(2026, 8, 1, 12, 0, 30, 0, time.UTC)
	allowed, err := limiter.Allow(ctx, "alice", 1, now)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "alice", 1, now)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Next clock-aligned window, the count starts fresh.
	allowed, err = limiter.Allow(ctx, "alice", 1, now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_PrincipalsAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter, err := New(NewInMemoryCounterStore(), time.Minute)
	require.NoError(t, err)

	now := time.Now()
	allowed, err := limiter.Allow(ctx, "alice", 1, now)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "bob", 1, now)
	require.NoError(t, err)
	assert.True(t, allowed, "bob's window must not share alice's counter")
}

func TestAllow_ConcurrentChecksAreExact(t *testing.T) {
	ctx := context.Background()
	limiter, err := New(NewInMemoryCounterStore(), time.Minute)
	require.NoError(t, err)

	const limit = 16
	const attempts = 64
	now := time.Date(2026, 8, 1, 12, 0, 30, 0, time.UTC)

	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, err := limiter.Allow(ctx, "alice", limit, now)
			assert.NoError(t, err)
			results <- allowed
		}()
	}
	wg.Wait()
	close(results)

	allowedCount := 0
	for allowed := range results {
		if allowed {
			allowedCount++
		}
	}
	assert.Equal(t, limit, allowedCount, "exactly limit checks must pass, no lost or duplicated increments")
}

func TestAllow_StoreFailureIsAnError(t *testing.T) {
	limiter, err := New(failingStore{}, time.Second)
	require.NoError(t, err)

	allowed, err := limiter.Allow(context.Background(), "alice", 100, time.Now())
	assert.Error(t, err)
	assert.False(t, allowed, "a failed increment must never admit traffic")
}
