package checks

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eligo/internal/eligibility/models"
	"eligo/pkg/platform/sentinel"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func queued(group *uuid.UUID, seq *int, created time.Time) *models.EligibilityCheck {
	return &models.EligibilityCheck{
		ID:        uuid.New(),
		Type:      models.CheckTypeFreeSchoolMeals,
		Status:    models.StatusQueuedForProcessing,
		Payload:   []byte(`{}`),
		GroupID:   group,
		Sequence:  seq,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func intp(n int) *int { return &n }

func TestCompleteQueued(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	c := queued(nil, nil, t0)
	require.NoError(t, s.Create(ctx, c))

	hashID := uuid.New()
	require.NoError(t, s.CompleteQueued(ctx, c.ID, models.StatusEligible, &hashID, t0.Add(time.Minute)))

	got, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEligible, got.Status)
	assert.Equal(t, &hashID, got.CheckHashID)
	assert.Equal(t, t0.Add(time.Minute), got.UpdatedAt)

	err = s.CompleteQueued(ctx, c.ID, models.StatusNotEligible, nil, t0)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	err = s.CompleteQueued(ctx, uuid.New(), models.StatusEligible, nil, t0)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSetStatusIsUnconditional(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	c := queued(nil, nil, t0)
	require.NoError(t, s.Create(ctx, c))
	require.NoError(t, s.CompleteQueued(ctx, c.ID, models.StatusError, nil, t0))

	require.NoError(t, s.SetStatus(ctx, c.ID, models.StatusQueuedForProcessing, t0))
	got, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueuedForProcessing, got.Status)

	assert.ErrorIs(t, s.SetStatus(ctx, uuid.New(), models.StatusError, t0), sentinel.ErrNotFound)
}

func TestCreateBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	group := uuid.New()

	first := queued(&group, intp(1), t0)
	dup := queued(&group, intp(1), t0)
	err := s.CreateBatch(ctx, []*models.EligibilityCheck{first, dup})
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	_, err = s.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "first insert rolled back")
}

func TestListByGroupOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	group := uuid.New()
	other := uuid.New()

	c3 := queued(&group, intp(3), t0)
	c1 := queued(&group, intp(1), t0.Add(2*time.Second))
	c2 := queued(&group, intp(2), t0.Add(time.Second))
	stray := queued(&other, intp(1), t0)
	require.NoError(t, s.CreateBatch(ctx, []*models.EligibilityCheck{c3, c1, c2, stray}))

	got, err := s.ListByGroup(ctx, group)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	if diff := cmp.Diff([]uuid.UUID{c1.ID, c2.ID, c3.ID}, ids); diff != "" {
		t.Errorf("ListByGroup order mismatch (-want +got):\n%s", diff)
	}
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	group := uuid.New()
	a, b, c := queued(&group, intp(1), t0), queued(&group, intp(2), t0), queued(&group, intp(3), t0)
	require.NoError(t, s.CreateBatch(ctx, []*models.EligibilityCheck{a, b, c}))
	require.NoError(t, s.CompleteQueued(ctx, a.ID, models.StatusEligible, nil, t0))

	counts, err := s.CountByStatus(ctx, group)
	require.NoError(t, err)
	want := []models.StatusCount{
		{Status: models.StatusEligible, Count: 1},
		{Status: models.StatusQueuedForProcessing, Count: 2},
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("CountByStatus mismatch (-want +got):\n%s", diff)
	}

	empty, err := s.CountByStatus(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
