// Package account reads the authentication and quota view of relay
// principals. The underlying relations are populated and maintained by the
// external admin service; this package never writes to them, and the
// decision path never consumes quota — post-queue accounting owns that.
package account

import "context"

// Snapshot is the read-only view of one principal, immutable for the
// duration of a single decision. MonthlySent may be stale relative to
// concurrent post-queue accounting; that staleness is accepted by design to
// keep the decision path read-only and low-latency.
type Snapshot struct {
	Username           string
	DedicatedIP        string // empty when the account sends from the shared pool
	MonthlyLimit       int64
	MonthlySent        int64
	RateLimitPerSecond int
	RateLimitPerMinute int
}

// Store fetches principal snapshots. Fetch returns sentinel.ErrNotFound for
// an unknown principal, an inactive one, or one without a quota row, and an
// error wrapping sentinel.ErrUnavailable when the backend cannot be
// reached. The two are never conflated: they map to different verdicts
// (permanent reject vs temporary defer).
type Store interface {
	Fetch(ctx context.Context, username string) (*Snapshot, error)
}
