package models

import (
	"fmt"
	"strings"
	"time"
)

// RateKey builds the counter-store key for one principal and window at a
// given instant. The window index pins the key to a clock-aligned interval
// of the window's size, so counts cannot leak across windows; expiring
// stale keys is the counter store's job, not the caller's.
func RateKey(principal string, window time.Duration, now time.Time) string {
	windowSecs := int64(window / time.Second)
	windowIdx := now.Unix() / windowSecs
	return fmt.Sprintf("rate:%s:%d:%d", SanitizeKeySegment(principal), windowSecs, windowIdx)
}

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where user-controlled identifiers
// containing ':' could manipulate adjacent rate limit buckets.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
