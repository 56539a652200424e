// Package reference holds the tax-authority and immigration extracts that the
// extract checkers query. Ingestion happens elsewhere; this package only reads.
package reference

import (
	"context"
	"strings"
	"sync"
)

type extractKey struct {
	ref string
	dob string
}

// InMemoryStore keeps extract rows keyed by reference number and date of birth.
type InMemoryStore struct {
	mu           sync.RWMutex
	taxAuthority map[extractKey][]string
	immigration  map[extractKey][]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		taxAuthority: make(map[extractKey][]string),
		immigration:  make(map[extractKey][]string),
	}
}

// AddTaxAuthority seeds one tax-authority extract row.
func (s *InMemoryStore) AddTaxAuthority(nino, dob, surname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := extractKey{ref: strings.ToUpper(nino), dob: dob}
	s.taxAuthority[k] = append(s.taxAuthority[k], surname)
}

// AddImmigration seeds one immigration extract row.
func (s *InMemoryStore) AddImmigration(nass, dob, surname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := extractKey{ref: nass, dob: dob}
	s.immigration[k] = append(s.immigration[k], surname)
}

func (s *InMemoryStore) TaxAuthoritySurnames(_ context.Context, nino, dob string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.taxAuthority[extractKey{ref: strings.ToUpper(nino), dob: dob}]), nil
}

func (s *InMemoryStore) ImmigrationSurnames(_ context.Context, nass, dob string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.immigration[extractKey{ref: nass, dob: dob}]), nil
}

func clone(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
