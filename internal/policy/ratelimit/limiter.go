// Package ratelimit enforces per-principal fixed-window limits against a
// shared counter store. Fixed windows trade burst precision at window
// boundaries for O(1) memory and a single atomic round trip per check; the
// MTA's own session timeout makes that round trip the dominant cost.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"relaypolicyd/internal/policy/models"
)

// CounterStore is the atomic counter primitive the limiter relies on.
// IncrementAndExpire must apply the increment and the TTL reset as one
// atomic step so a crash or reordering never leaves an un-expiring counter,
// and must return the post-increment count.
type CounterStore interface {
	IncrementAndExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Limiter checks one window size. A decision consults two instances, one
// per second and one per minute.
type Limiter struct {
	store  CounterStore
	window time.Duration
}

// New constructs a limiter for the given window. Windows are whole seconds,
// matching the counter store's TTL resolution.
func New(store CounterStore, window time.Duration) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	if window < time.Second || window%time.Second != 0 {
		return nil, fmt.Errorf("window must be a positive whole number of seconds, got %s", window)
	}
	return &Limiter{store: store, window: window}, nil
}

// Allow records one event for principal and reports whether the count in
// the current window stays at or under limit. The counter TTL is window+1s
// so the store expires stale windows on its own. A store failure is
// returned to the caller; admission is never granted on a failed increment,
// since allowing unconditionally would defeat the limit exactly when the
// system is degraded.
func (l *Limiter) Allow(ctx context.Context, principal string, limit int, now time.Time) (bool, error) {
	key := models.RateKey(principal, l.window, now)
	count, err := l.store.IncrementAndExpire(ctx, key, l.window+time.Second)
	if err != nil {
		return false, fmt.Errorf("rate counter %s: %w", key, err)
	}
	return count <= int64(limit), nil
}

// Window reports the configured window size.
func (l *Limiter) Window() time.Duration {
	return l.window
}
