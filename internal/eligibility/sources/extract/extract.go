// Package extract checks claimants against the tax-authority and immigration
// reference extracts held locally.
package extract

import (
	"context"

	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/sources"
)

// TaxAuthorityExtract looks up surnames by NI number and date of birth.
type TaxAuthorityExtract interface {
	TaxAuthoritySurnames(ctx context.Context, nino, dob string) ([]string, error)
}

// ImmigrationExtract looks up surnames by NASS number and date of birth.
type ImmigrationExtract interface {
	ImmigrationSurnames(ctx context.Context, nass, dob string) ([]string, error)
}

const (
	TaxAuthorityCheckerID = "tax_authority_extract"
	ImmigrationCheckerID  = "immigration_extract"
)

type TaxAuthorityChecker struct {
	extract TaxAuthorityExtract
}

func NewTaxAuthorityChecker(extract TaxAuthorityExtract) *TaxAuthorityChecker {
	return &TaxAuthorityChecker{extract: extract}
}

func (c *TaxAuthorityChecker) ID() string            { return TaxAuthorityCheckerID }
func (c *TaxAuthorityChecker) Source() models.Source { return models.SourceTaxAuthority }

func (c *TaxAuthorityChecker) Check(ctx context.Context, id models.Identity) (models.Outcome, error) {
	surnames, err := c.extract.TaxAuthoritySurnames(ctx, id.NationalInsuranceNumber, id.DateOfBirth)
	if err != nil {
		return models.OutcomeError, lookupError(ctx, TaxAuthorityCheckerID, err)
	}
	return classify(id.LastName, surnames), nil
}

type ImmigrationChecker struct {
	extract ImmigrationExtract
}

func NewImmigrationChecker(extract ImmigrationExtract) *ImmigrationChecker {
	return &ImmigrationChecker{extract: extract}
}

func (c *ImmigrationChecker) ID() string            { return ImmigrationCheckerID }
func (c *ImmigrationChecker) Source() models.Source { return models.SourceImmigration }

func (c *ImmigrationChecker) Check(ctx context.Context, id models.Identity) (models.Outcome, error) {
	surnames, err := c.extract.ImmigrationSurnames(ctx, id.NationalAsylumSeekerServiceNumber, id.DateOfBirth)
	if err != nil {
		return models.OutcomeError, lookupError(ctx, ImmigrationCheckerID, err)
	}
	return classify(id.LastName, surnames), nil
}

// classify: no rows means the parent is unknown to the extract; rows that
// don't match the surname mean the identity exists but is not this claimant.
func classify(surname string, candidates []string) models.Outcome {
	if len(candidates) == 0 {
		return models.OutcomeParentNotFound
	}
	if sources.MatchSurname(surname, candidates) {
		return models.OutcomeEligible
	}
	return models.OutcomeNotEligible
}

func lookupError(ctx context.Context, checkerID string, err error) error {
	if ctx.Err() != nil {
		return sources.NewCheckerError(sources.ErrorTimeout, checkerID, "extract lookup cancelled", err)
	}
	return sources.NewCheckerError(sources.ErrorProviderOutage, checkerID, "extract lookup failed", err)
}
