package dwp

import (
	"eligo/internal/eligibility/entitlement"
)

// The citizen API speaks JSON:API envelopes.

type matchRequest struct {
	JSONAPI jsonAPIVersion   `json:"jsonapi"`
	Data    matchRequestData `json:"data"`
}

type jsonAPIVersion struct {
	Version string `json:"version"`
}

type matchRequestData struct {
	Type       string          `json:"type"`
	Attributes matchAttributes `json:"attributes"`
}

type matchAttributes struct {
	LastName     string `json:"lastName"`
	NinoFragment string `json:"ninoFragment"`
	DateOfBirth  string `json:"dateOfBirth"`
}

type matchResponse struct {
	Data struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			MatchingScenario string `json:"matchingScenario"`
		} `json:"attributes"`
	} `json:"data"`
}

type claimsResponse struct {
	Data []claimResource `json:"data"`
}

type claimResource struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes claimAttributes `json:"attributes"`
}

type claimAttributes struct {
	BenefitType string       `json:"benefitType"`
	Status      string       `json:"status"`
	Awards      []awardEntry `json:"awards"`
}

type awardEntry struct {
	StartDate            string `json:"startDate"`
	EndDate              string `json:"endDate"`
	Status               string `json:"status"`
	AssessmentAttributes struct {
		TakeHomePay entitlement.Pence `json:"takeHomePay"`
	} `json:"assessmentAttributes"`
}

func (r claimsResponse) snapshot() entitlement.ClaimsSnapshot {
	snap := entitlement.ClaimsSnapshot{Claims: make([]entitlement.Claim, 0, len(r.Data))}
	for _, c := range r.Data {
		claim := entitlement.Claim{
			BenefitType: entitlement.BenefitType(c.Attributes.BenefitType),
			Status:      c.Attributes.Status,
		}
		for _, a := range c.Attributes.Awards {
			claim.Awards = append(claim.Awards, entitlement.Award{
				StartDate:   a.StartDate,
				EndDate:     a.EndDate,
				Status:      a.Status,
				TakeHomePay: a.AssessmentAttributes.TakeHomePay,
			})
		}
		snap.Claims = append(snap.Claims, claim)
	}
	return snap
}
