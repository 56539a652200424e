package entitlement

// BenefitType names a benefit as the benefits department reports it.
type BenefitType string

const (
	BenefitESAIncomeBased  BenefitType = "employment_support_allowance_income_based"
	BenefitIncomeSupport   BenefitType = "income_support"
	BenefitJSAIncomeBased  BenefitType = "job_seekers_allowance_income_based"
	BenefitPensionsCredit  BenefitType = "pensions_credit"
	BenefitUniversalCredit BenefitType = "universal_credit"
)

// Claim and award statuses that matter to the rules. Others are carried but ignored.
const (
	ClaimStatusDecisionEntitled = "decision_entitled"
	ClaimStatusInPayment        = "in_payment"
	AwardStatusLive             = "live"
)

// standardBenefits qualify outright when the decision is entitled.
var standardBenefits = map[BenefitType]struct{}{
	BenefitESAIncomeBased: {},
	BenefitIncomeSupport:  {},
	BenefitJSAIncomeBased: {},
	BenefitPensionsCredit: {},
}

// ClaimsSnapshot is the claims held for one citizen over the query window.
type ClaimsSnapshot struct {
	Claims []Claim
}

type Claim struct {
	BenefitType BenefitType
	Status      string
	Awards      []Award
}

type Award struct {
	StartDate   string
	EndDate     string
	Status      string
	TakeHomePay Pence
}

func (c Claim) liveAwards() []Award {
	var live []Award
	for _, a := range c.Awards {
		if a.Status == AwardStatusLive {
			live = append(live, a)
		}
	}
	return live
}
