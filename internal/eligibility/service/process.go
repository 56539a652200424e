package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/orchestrator"
	"eligo/internal/eligibility/sources"
	dErrors "eligo/pkg/domain-errors"
	audit "eligo/pkg/platform/audit"
	"eligo/pkg/platform/sentinel"
	"eligo/pkg/requestcontext"
)

// Process verifies a queued check.
//
// A verification outcome is written together with its dedup entry in one unit
// of work and the terminal status is returned. A failed verification leaves
// the check queued (see stayQueued) and returns an error alongside
// StatusQueuedForProcessing; the queue worker decides whether to retry.
func (s *Service) Process(ctx context.Context, id uuid.UUID) (models.CheckStatus, error) {
	check, err := s.checks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", ErrCheckNotFound
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "load check")
	}
	if check.Status != models.StatusQueuedForProcessing {
		return check.Status, ErrNotProcessable
	}

	req, err := models.DecodeCheckRequest(check.Type, check.Payload)
	if err != nil {
		return s.stayQueued(ctx, check, orchestrator.Decision{}, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "stored payload is unreadable"))
	}

	decision, err := s.verifier.Verify(ctx, req.Identity())
	if err != nil {
		return s.stayQueued(ctx, check, decision, err)
	}

	status := decision.Outcome.Status()
	var entry *models.CheckHash
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		created, err := s.dedup.Create(ctx, req, decision.Outcome, decision.Source)
		if err != nil {
			return err
		}
		entry = created
		return s.checks.CompleteQueued(ctx, check.ID, status, &created.ID, requestcontext.Now(ctx))
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return "", ErrNotProcessable
		case errors.Is(err, sentinel.ErrNotFound):
			return "", ErrCheckNotFound
		case dErrors.CodeOf(err) != dErrors.CodeInternal:
			return "", err
		default:
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "record verification outcome")
		}
	}

	// Events go out only after commit; a rolled-back entry is never announced.
	s.metrics.IncrementTransition(string(status), "process")
	s.emit(ctx, hashCreatedEvent(ctx, check, entry))
	event := baseEvent(ctx, audit.EventCheckResolved, check)
	event.Outcome = string(status)
	event.Source = string(decision.Source)
	event.SubjectHash = models.Fingerprint(req)
	s.emit(ctx, event)
	s.logger.InfoContext(ctx, "check resolved",
		"check_id", check.ID,
		"outcome", status,
		"source", decision.CheckerID,
		"fell_back", decision.FellBack,
	)
	return status, nil
}

func hashCreatedEvent(ctx context.Context, check *models.EligibilityCheck, entry *models.CheckHash) audit.Event {
	event := baseEvent(ctx, audit.EventCheckHashCreated, check)
	event.Timestamp = entry.CreatedAt
	event.SubjectHash = entry.Hash
	event.Outcome = string(entry.Outcome)
	event.Source = string(entry.Source)
	return event
}

// stayQueued is the error route. The row is not touched: error is never
// cached and never written here, so a redelivery can still succeed. The caller
// gets StatusQueuedForProcessing and an upstream_unavailable error, or
// invariant_violation when the data itself is at fault.
func (s *Service) stayQueued(ctx context.Context, check *models.EligibilityCheck, decision orchestrator.Decision, cause error) (models.CheckStatus, error) {
	code := dErrors.CodeUpstreamUnavailable
	switch {
	case sources.GetCategory(cause) == sources.ErrorInvariant,
		errors.Is(cause, orchestrator.ErrNoIdentifier),
		dErrors.HasCode(cause, dErrors.CodeInvariantViolation):
		code = dErrors.CodeInvariantViolation
	}
	s.logger.WarnContext(ctx, "verification failed; check stays queued",
		"check_id", check.ID,
		"source", decision.CheckerID,
		"retryable", sources.IsRetryable(cause),
		"error", cause,
	)
	return models.StatusQueuedForProcessing, dErrors.Wrap(cause, code, "verification failed")
}
