package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eligo/internal/eligibility/models"
	dErrors "eligo/pkg/domain-errors"
	audit "eligo/pkg/platform/audit"
	"eligo/pkg/platform/sentinel"
	"eligo/pkg/requestcontext"
)

// Submit validates req and records a check. A fresh dedup hit completes the
// check immediately with the cached status; otherwise the check is queued on
// the standard queue.
func (s *Service) Submit(ctx context.Context, req models.CheckRequest) (*models.EligibilityCheck, error) {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}

	check, hit, err := s.prepare(ctx, req, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := s.checks.Create(ctx, check); err != nil {
		return nil, translateWriteError(err, "create check")
	}
	s.afterCreate(ctx, check, hit)

	if hit == nil {
		if err := s.enqueue(ctx, s.standard, check); err != nil {
			s.abandon(ctx, check, err)
			return check, err
		}
	}
	return check, nil
}

// SubmitBulk validates every item before writing anything, then records the
// checks as one group. Items without a sequence get their 1-based position.
func (s *Service) SubmitBulk(ctx context.Context, reqs []models.CheckRequest) (uuid.UUID, []*models.EligibilityCheck, error) {
	if len(reqs) == 0 {
		return uuid.Nil, nil, dErrors.New(dErrors.CodeValidation, "bulk submission has no items")
	}

	normalized := make([]models.CheckRequest, len(reqs))
	sequences := make([]int, len(reqs))
	seen := make(map[int]int, len(reqs))
	for i, req := range reqs {
		req = req.Normalized()
		if err := req.Validate(); err != nil {
			return uuid.Nil, nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("item %d: %s", i+1, err.Error()))
		}
		seq := i + 1
		if explicit := req.Sequence(); explicit != nil {
			seq = *explicit
		}
		if prev, dup := seen[seq]; dup {
			return uuid.Nil, nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("items %d and %d share sequence %d", prev+1, i+1, seq))
		}
		seen[seq] = i
		normalized[i] = req
		sequences[i] = seq
	}

	groupID := uuid.New()
	checks := make([]*models.EligibilityCheck, len(normalized))
	hits := make([]*models.CheckHash, len(normalized))
	for i, req := range normalized {
		seq := sequences[i]
		check, hit, err := s.prepare(ctx, req, &groupID, &seq)
		if err != nil {
			return uuid.Nil, nil, err
		}
		checks[i] = check
		hits[i] = hit
	}

	if err := s.checks.CreateBatch(ctx, checks); err != nil {
		return uuid.Nil, nil, translateWriteError(err, "create bulk checks")
	}

	var enqueueErr error
	for i, check := range checks {
		s.afterCreate(ctx, check, hits[i])
		if hits[i] != nil {
			continue
		}
		if err := s.enqueue(ctx, s.bulk, check); err != nil {
			s.abandon(ctx, check, err)
			if enqueueErr == nil {
				enqueueErr = err
			}
		}
	}
	s.logger.InfoContext(ctx, "bulk check submitted",
		"group_id", groupID,
		"items", len(checks),
	)
	return groupID, checks, enqueueErr
}

// prepare builds the row for req, consulting the dedup cache.
func (s *Service) prepare(ctx context.Context, req models.CheckRequest, groupID *uuid.UUID, seq *int) (*models.EligibilityCheck, *models.CheckHash, error) {
	payload, err := req.Encode()
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode payload")
	}
	hit, err := s.dedup.Exists(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	now := requestcontext.Now(ctx)
	check := &models.EligibilityCheck{
		ID:        uuid.New(),
		Type:      req.Type,
		Status:    models.StatusQueuedForProcessing,
		Payload:   payload,
		GroupID:   groupID,
		Sequence:  seq,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if hit != nil {
		hashID := hit.ID
		check.Status = hit.Outcome
		check.CheckHashID = &hashID
	}
	return check, hit, nil
}

func (s *Service) afterCreate(ctx context.Context, check *models.EligibilityCheck, hit *models.CheckHash) {
	if hit == nil {
		s.metrics.IncrementTransition(string(check.Status), "submit")
		return
	}
	s.metrics.IncrementTransition(string(check.Status), "cache")
	event := baseEvent(ctx, audit.EventCheckCached, check)
	event.Outcome = string(hit.Outcome)
	event.Source = string(hit.Source)
	event.SubjectHash = hit.Hash
	s.emit(ctx, event)
}

func (s *Service) enqueue(ctx context.Context, q Enqueuer, check *models.EligibilityCheck) error {
	body, err := json.Marshal(models.ProcessMessage{Type: check.Type, ID: check.ID.String()})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode queue message")
	}
	if err := q.Send(ctx, body); err != nil {
		s.logger.ErrorContext(ctx, "enqueue failed",
			"check_id", check.ID,
			"queue", q.Name(),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "enqueue check")
	}
	return nil
}

// abandon finalizes a check whose message never reached its queue. Without a
// message nothing would ever process it, so it is closed as error rather than
// left queued. An administrator can requeue it through UpdateStatus.
func (s *Service) abandon(ctx context.Context, check *models.EligibilityCheck, cause error) {
	now := requestcontext.Now(ctx)
	if err := s.checks.CompleteQueued(ctx, check.ID, models.StatusError, nil, now); err != nil {
		s.logger.ErrorContext(ctx, "could not close unqueued check",
			"check_id", check.ID,
			"error", err,
		)
		return
	}
	check.Status = models.StatusError
	check.UpdatedAt = now
	s.metrics.IncrementTransition(string(models.StatusError), "enqueue_failed")
	event := baseEvent(ctx, audit.EventCheckForcedError, check)
	event.Outcome = string(models.StatusError)
	event.Reason = "enqueue failed: " + cause.Error()
	s.emit(ctx, event)
}

func translateWriteError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
