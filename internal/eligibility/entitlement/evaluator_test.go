package entitlement

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "eligo/pkg/domain-errors"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(DefaultThresholds())
	require.NoError(t, err)
	return e
}

func ucClaim(status string, pays ...Pence) Claim {
	c := Claim{BenefitType: BenefitUniversalCredit, Status: status}
	for _, p := range pays {
		c.Awards = append(c.Awards, Award{Status: AwardStatusLive, TakeHomePay: p})
	}
	return c
}

func TestNewEvaluatorRejectsBadThresholds(t *testing.T) {
	_, err := NewEvaluator(Thresholds{100, 100, 300})
	assert.Error(t, err)
	_, err = NewEvaluator(Thresholds{0, 100, 300})
	assert.Error(t, err)
	_, err = NewEvaluator(Thresholds{300, 200, 100})
	assert.Error(t, err)
}

func TestIsEntitled(t *testing.T) {
	e := newEvaluator(t)

	tests := []struct {
		name   string
		claims []Claim
		want   bool
	}{
		{"no claims", nil, false},
		{"pensions credit entitled", []Claim{{BenefitType: BenefitPensionsCredit, Status: ClaimStatusDecisionEntitled}}, true},
		{"income support entitled", []Claim{{BenefitType: BenefitIncomeSupport, Status: ClaimStatusDecisionEntitled}}, true},
		{"ESA entitled", []Claim{{BenefitType: BenefitESAIncomeBased, Status: ClaimStatusDecisionEntitled}}, true},
		{"JSA entitled", []Claim{{BenefitType: BenefitJSAIncomeBased, Status: ClaimStatusDecisionEntitled}}, true},
		{"standard benefit not entitled", []Claim{{BenefitType: BenefitPensionsCredit, Status: "decision_disallowed"}}, false},
		{"unknown benefit entitled", []Claim{{BenefitType: "child_benefit", Status: ClaimStatusDecisionEntitled}}, false},
		{"uc not in payment", []Claim{ucClaim("decision_entitled", 100)}, false},
		{"uc in payment with no live awards", []Claim{{
			BenefitType: BenefitUniversalCredit,
			Status:      ClaimStatusInPayment,
			Awards:      []Award{{Status: "ended", TakeHomePay: 10}},
		}}, false},
		{"uc one award at threshold", []Claim{ucClaim(ClaimStatusInPayment, 61667)}, true},
		{"uc one award above threshold", []Claim{ucClaim(ClaimStatusInPayment, 61668)}, false},
		{"uc two awards at threshold", []Claim{ucClaim(ClaimStatusInPayment, 60000, 63333)}, true},
		{"uc two awards above threshold", []Claim{ucClaim(ClaimStatusInPayment, 60000, 63334)}, false},
		{"uc three awards at threshold", []Claim{ucClaim(ClaimStatusInPayment, 60000, 60000, 64999)}, true},
		{"uc three awards above threshold", []Claim{ucClaim(ClaimStatusInPayment, 60000, 60000, 65000)}, false},
		{"ended awards are ignored", []Claim{{
			BenefitType: BenefitUniversalCredit,
			Status:      ClaimStatusInPayment,
			Awards: []Award{
				{Status: AwardStatusLive, TakeHomePay: 50000},
				{Status: "ended", TakeHomePay: 900000},
			},
		}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.IsEntitled(ClaimsSnapshot{Claims: tc.claims})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsEntitledTooManyLiveAwards(t *testing.T) {
	e := newEvaluator(t)
	_, err := e.IsEntitled(ClaimsSnapshot{Claims: []Claim{ucClaim(ClaimStatusInPayment, 1, 1, 1, 1)}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyLiveAwards))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestStandardBenefitWinsOverBrokenUniversalCredit(t *testing.T) {
	e := newEvaluator(t)
	ok, err := e.IsEntitled(ClaimsSnapshot{Claims: []Claim{
		ucClaim(ClaimStatusInPayment, 1, 1, 1, 1),
		{BenefitType: BenefitPensionsCredit, Status: ClaimStatusDecisionEntitled},
	}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestThresholdBoundaryProperties(t *testing.T) {
	e := newEvaluator(t)
	thresholds := DefaultThresholds()
	properties := gopter.NewProperties(nil)

	properties.Property("split pay at or under the tier is entitled, one penny over is not", prop.ForAll(
		func(count int, split int64) bool {
			limit := thresholds[count-1]
			pays := spread(limit, count, split)
			atLimit, err := e.IsEntitled(ClaimsSnapshot{Claims: []Claim{ucClaim(ClaimStatusInPayment, pays...)}})
			if err != nil || !atLimit {
				return false
			}
			pays[0]++
			over, err := e.IsEntitled(ClaimsSnapshot{Claims: []Claim{ucClaim(ClaimStatusInPayment, pays...)}})
			return err == nil && !over
		},
		gen.IntRange(1, MaxLiveAwards),
		gen.Int64Range(0, 1000),
	))

	properties.Property("any pay under the tier is entitled", prop.ForAll(
		func(count int, pay int64) bool {
			limit := int64(thresholds[count-1])
			if pay > limit {
				pay = limit
			}
			ok, err := e.IsEntitled(ClaimsSnapshot{Claims: []Claim{ucClaim(ClaimStatusInPayment, spread(Pence(pay), count, 0)...)}})
			return err == nil && ok
		},
		gen.IntRange(1, MaxLiveAwards),
		gen.Int64Range(0, 184999),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// spread divides total across count awards, moving shift pence from the
// first award to the last so the sum stays total.
func spread(total Pence, count int, shift int64) []Pence {
	pays := make([]Pence, count)
	each := total / Pence(count)
	for i := range pays {
		pays[i] = each
	}
	pays[count-1] += total - each*Pence(count)
	if count > 1 && Pence(shift) <= pays[0] {
		pays[0] -= Pence(shift)
		pays[count-1] += Pence(shift)
	}
	return pays
}

func TestParsePence(t *testing.T) {
	tests := []struct {
		in   string
		want Pence
	}{
		{"616.67", 61667},
		{"1233.33", 123333},
		{"12", 1200},
		{"0.5", 50},
		{"0.995", 100},
		{"0.994", 99},
		{"-3.50", -350},
		{".75", 75},
	}
	for _, tc := range tests {
		got, err := ParsePence(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
	for _, bad := range []string{"", "abc", "1.2x"} {
		_, err := ParsePence(bad)
		assert.Error(t, err, bad)
	}
}

func TestPenceUnmarshalJSON(t *testing.T) {
	var award struct {
		TakeHomePay Pence `json:"takeHomePay"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"takeHomePay": 616.67}`), &award))
	assert.Equal(t, Pence(61667), award.TakeHomePay)
	require.NoError(t, json.Unmarshal([]byte(`{"takeHomePay": "100.10"}`), &award))
	assert.Equal(t, Pence(10010), award.TakeHomePay)
	assert.Equal(t, "£100.10", award.TakeHomePay.String())
}
