package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"eligo/internal/eligibility/models"
	dErrors "eligo/pkg/domain-errors"
	audit "eligo/pkg/platform/audit"
	"eligo/pkg/platform/sentinel"
	"eligo/pkg/requestcontext"
)

// ActorWorker marks overrides made by the queue worker.
const ActorWorker = "worker"

func (s *Service) GetCheck(ctx context.Context, id uuid.UUID) (*models.EligibilityCheck, error) {
	check, err := s.checks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrCheckNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load check")
	}
	return check, nil
}

// UpdateStatus is the administrative override. It never runs verification and
// is the only way back to queuedForProcessing. Setting the current status
// again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CheckStatus) (*models.EligibilityCheck, error) {
	if _, err := models.ParseCheckStatus(string(status)); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	check, err := s.GetCheck(ctx, id)
	if err != nil {
		return nil, err
	}
	if check.Status == status {
		return check, nil
	}

	previous := check.Status
	now := requestcontext.Now(ctx)
	if err := s.checks.SetStatus(ctx, id, status, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrCheckNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update check status")
	}
	check.Status = status
	check.UpdatedAt = now

	eventType := audit.EventCheckStatusOverridden
	if requestcontext.Actor(ctx) == ActorWorker && status == models.StatusError {
		eventType = audit.EventCheckForcedError
	}
	s.metrics.IncrementTransition(string(status), "override")
	event := baseEvent(ctx, eventType, check)
	event.Outcome = string(status)
	event.Reason = "previous status " + string(previous)
	s.emit(ctx, event)
	return check, nil
}
