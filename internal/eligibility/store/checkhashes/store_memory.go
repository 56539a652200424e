// Package checkhashes persists dedup cache entries. Entries are append-only;
// callers pass the freshness cutoff on read.
package checkhashes

import (
	"context"
	"sync"
	"time"

	"eligo/internal/eligibility/models"
	"eligo/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries []models.CheckHash
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, entry *models.CheckHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

// FindFresh returns the newest entry for hash created at or after since.
func (s *InMemoryStore) FindFresh(_ context.Context, hash string, since time.Time) (*models.CheckHash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.CheckHash
	for i := range s.entries {
		e := s.entries[i]
		if e.Hash != hash || e.CreatedAt.Before(since) {
			continue
		}
		if best == nil || e.CreatedAt.After(best.CreatedAt) {
			best = &e
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return best, nil
}

// Count is the number of stored entries, expired ones included.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
