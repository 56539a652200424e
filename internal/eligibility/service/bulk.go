package service

import (
	"context"

	"github.com/google/uuid"

	"eligo/internal/eligibility/models"
	dErrors "eligo/pkg/domain-errors"
)

// BulkStatus counts a group's checks. Complete is every check no longer queued.
func (s *Service) BulkStatus(ctx context.Context, groupID uuid.UUID) (*models.BulkStatus, error) {
	counts, err := s.checks.CountByStatus(ctx, groupID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count group checks")
	}
	var status models.BulkStatus
	for _, c := range counts {
		status.Total += c.Count
		if c.Status.IsTerminal() {
			status.Complete += c.Count
		}
	}
	if status.Total == 0 {
		return nil, ErrGroupNotFound
	}
	return &status, nil
}

// BulkResults lists a group's checks in submission order: by sequence, then
// by creation time.
func (s *Service) BulkResults(ctx context.Context, groupID uuid.UUID) ([]models.BulkResult, error) {
	checks, err := s.checks.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list group checks")
	}
	if len(checks) == 0 {
		return nil, ErrGroupNotFound
	}

	results := make([]models.BulkResult, 0, len(checks))
	for _, c := range checks {
		result := models.BulkResult{CheckID: c.ID, Status: c.Status}
		if c.Sequence != nil {
			result.Sequence = *c.Sequence
		}
		req, err := models.DecodeCheckRequest(c.Type, c.Payload)
		if err != nil {
			s.logger.WarnContext(ctx, "unreadable payload in bulk results", "check_id", c.ID, "error", err)
		} else {
			result.Identity = req.Identity()
		}
		results = append(results, result)
	}
	return results, nil
}
