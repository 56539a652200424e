// Package checks persists eligibility checks and answers the bulk group queries.
package checks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eligo/internal/eligibility/models"
	"eligo/pkg/platform/sentinel"
)

type groupSeq struct {
	group uuid.UUID
	seq   int
}

// InMemoryStore mirrors the Postgres store's constraints: ids are unique, and
// so is (group, sequence) for grouped checks.
type InMemoryStore struct {
	mu     sync.RWMutex
	checks map[uuid.UUID]models.EligibilityCheck
	seqs   map[groupSeq]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		checks: make(map[uuid.UUID]models.EligibilityCheck),
		seqs:   make(map[groupSeq]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, check *models.EligibilityCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(check)
}

// CreateBatch inserts every check or none.
func (s *InMemoryStore) CreateBatch(_ context.Context, checks []*models.EligibilityCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted []*models.EligibilityCheck
	for _, c := range checks {
		if err := s.insertLocked(c); err != nil {
			for _, done := range inserted {
				s.removeLocked(done)
			}
			return err
		}
		inserted = append(inserted, c)
	}
	return nil
}

func (s *InMemoryStore) insertLocked(check *models.EligibilityCheck) error {
	if _, exists := s.checks[check.ID]; exists {
		return sentinel.ErrConflict
	}
	if key, ok := seqKey(check); ok {
		if _, taken := s.seqs[key]; taken {
			return sentinel.ErrConflict
		}
		s.seqs[key] = check.ID
	}
	s.checks[check.ID] = *check
	return nil
}

func (s *InMemoryStore) removeLocked(check *models.EligibilityCheck) {
	delete(s.checks, check.ID)
	if key, ok := seqKey(check); ok {
		delete(s.seqs, key)
	}
}

func seqKey(check *models.EligibilityCheck) (groupSeq, bool) {
	if check.GroupID == nil || check.Sequence == nil {
		return groupSeq{}, false
	}
	return groupSeq{group: *check.GroupID, seq: *check.Sequence}, true
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.EligibilityCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checks[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

// CompleteQueued moves a queued check to a terminal status. A check that is no
// longer queued yields sentinel.ErrInvalidState.
func (s *InMemoryStore) CompleteQueued(_ context.Context, id uuid.UUID, status models.CheckStatus, checkHashID *uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checks[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.Status != models.StatusQueuedForProcessing {
		return sentinel.ErrInvalidState
	}
	c.Status = status
	c.CheckHashID = checkHashID
	c.UpdatedAt = at
	s.checks[id] = c
	return nil
}

// SetStatus overwrites the status unconditionally.
func (s *InMemoryStore) SetStatus(_ context.Context, id uuid.UUID, status models.CheckStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checks[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = at
	s.checks[id] = c
	return nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context, groupID uuid.UUID) ([]models.StatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.CheckStatus]int)
	for _, c := range s.checks {
		if c.GroupID != nil && *c.GroupID == groupID {
			counts[c.Status]++
		}
	}
	out := make([]models.StatusCount, 0, len(counts))
	for st, n := range counts {
		out = append(out, models.StatusCount{Status: st, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

// ListByGroup returns a group's checks ordered by sequence, then creation time.
func (s *InMemoryStore) ListByGroup(_ context.Context, groupID uuid.UUID) ([]*models.EligibilityCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.EligibilityCheck
	for _, c := range s.checks {
		if c.GroupID != nil && *c.GroupID == groupID {
			c := c
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := seqOrZero(out[i].Sequence), seqOrZero(out[j].Sequence)
		if si != sj {
			return si < sj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func seqOrZero(seq *int) int {
	if seq == nil {
		return 0
	}
	return *seq
}
