// Package blacklist reads the admin-managed blacklist relation. The data
// model exists and is surfaced for operators, but no decision gate consults
// it; see DESIGN.md for the product-level mismatch.
package blacklist

import (
	"context"
	"sync"

	"relaypolicyd/internal/policy/models"
)

// Store lists blacklist entries. Read-only: the admin service owns writes.
type Store interface {
	List(ctx context.Context) ([]models.BlacklistEntry, error)
}

// InMemoryStore backs unit tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []models.BlacklistEntry
}

func NewInMemory(entries ...models.BlacklistEntry) *InMemoryStore {
	return &InMemoryStore{entries: entries}
}

func (s *InMemoryStore) List(_ context.Context) ([]models.BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BlacklistEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}
