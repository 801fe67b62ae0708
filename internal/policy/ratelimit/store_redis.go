package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"relaypolicyd/pkg/platform/sentinel"
)

// RedisCounterStore is the production counter store. INCR and EXPIRE commit
// together inside MULTI/EXEC, so concurrent checks for the same key observe
// a consistent monotonically increasing count and no key is ever left
// without a TTL.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore wraps a shared redis client whose lifecycle is owned
// by the caller.
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// IncrementAndExpire atomically increments key and resets its TTL, returning
// the post-increment count. Failures wrap sentinel.ErrUnavailable so callers
// can tell an unreachable store from a policy outcome.
func (s *RedisCounterStore) IncrementAndExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return incr.Val(), nil
}
