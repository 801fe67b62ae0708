// Package audit records terminal policy verdicts for after-the-fact
// analysis. Events are advisory: the hot decision path hands them to a
// buffered publisher and never waits on the sink, and losing an event never
// changes a decision.
package audit

import (
	"context"
	"time"
)

// Event is one terminal verdict.
type Event struct {
	ID            string    `json:"id"`
	Principal     string    `json:"principal"`
	Action        string    `json:"action"`
	Reason        string    `json:"reason,omitempty"`
	BindAddress   string    `json:"bind_address,omitempty"`
	ClientAddress string    `json:"client_address,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Sink receives events from the publisher's worker goroutine.
type Sink interface {
	Write(ctx context.Context, ev Event) error
	Close() error
}
