package account

import (
	"context"
	"fmt"
	"sync"

	"relaypolicyd/pkg/platform/sentinel"
)

// Record is a stored principal plus its active flag. Inactive records exist
// in the store but are invisible to Fetch, matching the SQL filter.
type Record struct {
	Snapshot
	Active bool
}

// InMemoryStore backs unit tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemory creates an empty in-memory account store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

// Put inserts or replaces a record, keyed by username.
func (s *InMemoryStore) Put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Username] = rec
}

// Fetch returns a copy of the snapshot so callers cannot mutate the store.
func (s *InMemoryStore) Fetch(_ context.Context, username string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[username]
	if !ok || !rec.Active {
		return nil, fmt.Errorf("account %q: %w", username, sentinel.ErrNotFound)
	}
	snap := rec.Snapshot
	return &snap, nil
}
