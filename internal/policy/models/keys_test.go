package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateKey(t *testing.T) {
	now := time.Unix(120, 500_000_000)

	assert.Equal(t, "rate:alice:60:2", RateKey("alice", time.Minute, now))
	assert.Equal(t, "rate:alice:1:120", RateKey("alice", time.Second, now))
}

func TestRateKey_SameWindowSameKey(t *testing.T) {
	early := time.Unix(60, 0)
	late := time.Unix(119, 999_000_000)

	assert.Equal(t, RateKey("alice", time.Minute, early), RateKey("alice", time.Minute, late))
	assert.NotEqual(t, RateKey("alice", time.Minute, early), RateKey("alice", time.Minute, time.Unix(120, 0)))
}

func TestSanitizeKeySegment(t *testing.T) {
	assert.Equal(t, "user_admin", SanitizeKeySegment("user:admin"))
	assert.Equal(t, "plain", SanitizeKeySegment("plain"))

	// A crafted username must not collide with another principal's bucket.
	assert.Equal(t, "rate:evil_60_999:60:2", RateKey("evil:60:999", time.Minute, time.Unix(120, 0)))
}
