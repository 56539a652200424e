package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/sources"
	"eligo/internal/eligibility/store/reference"
)

func TestTaxAuthorityChecker(t *testing.T) {
	store := reference.NewInMemoryStore()
	store.AddTaxAuthority("AB123456C", "1990-01-01", "SMITH-JONES")
	checker := NewTaxAuthorityChecker(store)

	tests := []struct {
		name string
		id   models.Identity
		want models.Outcome
	}{
		{"hyphenated surname matches", models.Identity{LastName: "Smith", DateOfBirth: "1990-01-01", NationalInsuranceNumber: "AB123456C"}, models.OutcomeEligible},
		{"second half does not match", models.Identity{LastName: "Jones", DateOfBirth: "1990-01-01", NationalInsuranceNumber: "AB123456C"}, models.OutcomeNotEligible},
		{"unknown NI", models.Identity{LastName: "Smith", DateOfBirth: "1990-01-01", NationalInsuranceNumber: "ZZ999999D"}, models.OutcomeParentNotFound},
		{"wrong date of birth", models.Identity{LastName: "Smith", DateOfBirth: "1991-01-01", NationalInsuranceNumber: "AB123456C"}, models.OutcomeParentNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := checker.Check(context.Background(), tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, models.SourceTaxAuthority, checker.Source())
}

func TestImmigrationChecker(t *testing.T) {
	store := reference.NewInMemoryStore()
	store.AddImmigration("240712345", "2001-06-15", "Okafor")
	checker := NewImmigrationChecker(store)

	got, err := checker.Check(context.Background(), models.Identity{LastName: "oka", DateOfBirth: "2001-06-15", NationalAsylumSeekerServiceNumber: "240712345"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEligible, got)

	got, err = checker.Check(context.Background(), models.Identity{LastName: "Adeyemi", DateOfBirth: "2001-06-15", NationalAsylumSeekerServiceNumber: "240712345"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNotEligible, got)
	assert.Equal(t, models.SourceImmigration, checker.Source())
}

type brokenExtract struct{}

func (brokenExtract) TaxAuthoritySurnames(context.Context, string, string) ([]string, error) {
	return nil, errors.New("connection refused")
}

func TestLookupFailureIsCheckerError(t *testing.T) {
	checker := NewTaxAuthorityChecker(brokenExtract{})
	outcome, err := checker.Check(context.Background(), models.Identity{LastName: "Smith"})
	require.Error(t, err)
	assert.Equal(t, models.OutcomeError, outcome)
	assert.Equal(t, sources.ErrorProviderOutage, sources.GetCategory(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = checker.Check(ctx, models.Identity{LastName: "Smith"})
	assert.Equal(t, sources.ErrorTimeout, sources.GetCategory(err))
}
