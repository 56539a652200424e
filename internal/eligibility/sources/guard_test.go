package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eligo/internal/eligibility/models"
	"eligo/pkg/platform/circuit"
)

type stubChecker struct {
	outcome models.Outcome
	err     error
	delay   time.Duration
	calls   int
}

func (s *stubChecker) ID() string            { return "stub" }
func (s *stubChecker) Source() models.Source { return models.SourceBenefitsDepartment }

func (s *stubChecker) Check(ctx context.Context, _ models.Identity) (models.Outcome, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return models.OutcomeError, ctx.Err()
		}
	}
	return s.outcome, s.err
}

func TestGuardTimeoutBecomesTimeoutError(t *testing.T) {
	stub := &stubChecker{outcome: models.OutcomeEligible, delay: time.Second}
	g := Guard(stub, 10*time.Millisecond)

	outcome, err := g.Check(context.Background(), models.Identity{})
	require.Error(t, err)
	assert.Equal(t, models.OutcomeError, outcome)
	assert.Equal(t, ErrorTimeout, GetCategory(err))
	assert.True(t, IsRetryable(err))
}

func TestGuardPassesOutcomeThrough(t *testing.T) {
	stub := &stubChecker{outcome: models.OutcomeParentNotFound}
	g := Guard(stub, time.Second)

	outcome, err := g.Check(context.Background(), models.Identity{})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeParentNotFound, outcome)
	assert.Equal(t, "stub", g.ID())
}

func TestGuardOpensBreakerOnRetryableFailures(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	breaker := circuit.New("dwp",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	stub := &stubChecker{err: NewCheckerError(ErrorProviderOutage, "stub", "503", nil)}
	g := Guard(stub, time.Second, WithBreaker(breaker))

	for i := 0; i < 2; i++ {
		_, err := g.Check(context.Background(), models.Identity{})
		require.Error(t, err)
	}
	assert.True(t, breaker.IsOpen())

	_, err := g.Check(context.Background(), models.Identity{})
	require.Error(t, err)
	assert.Equal(t, 2, stub.calls, "open breaker short-circuits")
	assert.Equal(t, ErrorProviderOutage, GetCategory(err))
}

func TestGuardContractErrorsDoNotTripBreaker(t *testing.T) {
	breaker := circuit.New("dwp", circuit.WithFailureThreshold(1))
	stub := &stubChecker{err: NewCheckerError(ErrorContractMismatch, "stub", "422", errors.New("unprocessable"))}
	g := Guard(stub, time.Second, WithBreaker(breaker))

	_, err := g.Check(context.Background(), models.Identity{})
	require.Error(t, err)
	assert.False(t, breaker.IsOpen())
}
