// Package sources holds the authoritative data sources a claimant is checked
// against. Each Checker answers eligible, notEligible or parentNotFound, and
// reports failures as *CheckerError.
package sources

import (
	"context"
	"strings"

	"eligo/internal/eligibility/models"
)

// Checker is implemented by every verification source.
type Checker interface {
	// ID names the checker in logs, metrics and spans.
	ID() string
	// Source is the authority recorded against a cached outcome.
	Source() models.Source
	// Check never returns OutcomeError with a nil error; failures come back as errors.
	Check(ctx context.Context, id models.Identity) (models.Outcome, error)
}

// surnamePrefixLen is how many leading characters of the claimant surname must
// match a reference record.
const surnamePrefixLen = 3

// SurnamePrefix returns the upper-cased leading characters of a surname used
// for matching and for upstream lookups. Shorter surnames are used whole.
func SurnamePrefix(surname string) string {
	s := []rune(strings.ToUpper(strings.TrimSpace(surname)))
	if len(s) > surnamePrefixLen {
		s = s[:surnamePrefixLen]
	}
	return string(s)
}

// MatchSurname reports whether any candidate surname starts with the claimant's
// surname prefix. Case-insensitive.
func MatchSurname(claimant string, candidates []string) bool {
	prefix := SurnamePrefix(claimant)
	if prefix == "" {
		return false
	}
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(c)), prefix) {
			return true
		}
	}
	return false
}
