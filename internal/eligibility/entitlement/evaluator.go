// Package entitlement decides benefit entitlement from a claims snapshot.
// Pure domain logic: no I/O, no clock, no logging.
package entitlement

import (
	"fmt"

	dErrors "eligo/pkg/domain-errors"
)

// MaxLiveAwards is the most live universal credit awards the thresholds cover.
const MaxLiveAwards = 3

// ErrTooManyLiveAwards means upstream reported more live awards than the
// income tiers are defined for.
var ErrTooManyLiveAwards = dErrors.New(dErrors.CodeInvariantViolation, "universal credit claim has more than 3 live awards")

// Thresholds are the maximum summed take-home pay for 1, 2 and 3 live awards.
type Thresholds [MaxLiveAwards]Pence

// DefaultThresholds returns £616.67, £1,233.33 and £1,849.99.
func DefaultThresholds() Thresholds {
	return Thresholds{61667, 123333, 184999}
}

func (t Thresholds) validate() error {
	var prev Pence
	for i, v := range t {
		if v <= prev {
			return fmt.Errorf("threshold %d (%s) must be positive and above threshold %d", i+1, v, i)
		}
		prev = v
	}
	return nil
}

// Evaluator applies the entitlement rules with a fixed set of thresholds.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator rejects thresholds that are not strictly increasing.
func NewEvaluator(thresholds Thresholds) (*Evaluator, error) {
	if err := thresholds.validate(); err != nil {
		return nil, err
	}
	return &Evaluator{thresholds: thresholds}, nil
}

// IsEntitled applies the rule chain:
//  1. any standard benefit with an entitled decision qualifies
//  2. a universal credit claim in payment qualifies when its live awards' summed
//     take-home pay is within the tier for that award count
//
// More than 3 live awards on a claim in payment is ErrTooManyLiveAwards.
func (e *Evaluator) IsEntitled(snapshot ClaimsSnapshot) (bool, error) {
	for _, c := range snapshot.Claims {
		if isStandardEntitled(c) {
			return true, nil
		}
	}
	for _, c := range snapshot.Claims {
		if c.BenefitType != BenefitUniversalCredit || c.Status != ClaimStatusInPayment {
			continue
		}
		ok, err := e.universalCreditEntitled(c)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func isStandardEntitled(c Claim) bool {
	if _, ok := standardBenefits[c.BenefitType]; !ok {
		return false
	}
	return c.Status == ClaimStatusDecisionEntitled
}

func (e *Evaluator) universalCreditEntitled(c Claim) (bool, error) {
	live := c.liveAwards()
	switch n := len(live); {
	case n == 0:
		return false, nil
	case n > MaxLiveAwards:
		return false, ErrTooManyLiveAwards
	default:
		var total Pence
		for _, a := range live {
			total += a.TakeHomePay
		}
		return total <= e.thresholds[n-1], nil
	}
}
