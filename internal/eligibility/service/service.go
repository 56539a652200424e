// Package service owns the lifecycle of an eligibility check: submission,
// processing to a terminal outcome, administrative overrides and bulk
// progress queries.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eligo/internal/eligibility/metrics"
	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/orchestrator"
	dErrors "eligo/pkg/domain-errors"
	audit "eligo/pkg/platform/audit"
	txcontext "eligo/pkg/platform/tx"
	"eligo/pkg/requestcontext"
)

// CheckStore persists checks. Writes join the transaction carried in ctx.
type CheckStore interface {
	Create(ctx context.Context, check *models.EligibilityCheck) error
	CreateBatch(ctx context.Context, checks []*models.EligibilityCheck) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.EligibilityCheck, error)
	CompleteQueued(ctx context.Context, id uuid.UUID, status models.CheckStatus, checkHashID *uuid.UUID, at time.Time) error
	SetStatus(ctx context.Context, id uuid.UUID, status models.CheckStatus, at time.Time) error
	CountByStatus(ctx context.Context, groupID uuid.UUID) ([]models.StatusCount, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.EligibilityCheck, error)
}

// DedupCache answers repeat questions and records new answers.
type DedupCache interface {
	Exists(ctx context.Context, req models.CheckRequest) (*models.CheckHash, error)
	Create(ctx context.Context, req models.CheckRequest, outcome models.Outcome, source models.Source) (*models.CheckHash, error)
}

// Verifier runs the source checkers for an identity.
type Verifier interface {
	Verify(ctx context.Context, id models.Identity) (orchestrator.Decision, error)
}

// Enqueuer is the send side of a queue.
type Enqueuer interface {
	Name() string
	Send(ctx context.Context, body []byte) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

var (
	ErrCheckNotFound  = dErrors.New(dErrors.CodeNotFound, "eligibility check not found")
	ErrGroupNotFound  = dErrors.New(dErrors.CodeNotFound, "bulk check group not found")
	ErrNotProcessable = dErrors.New(dErrors.CodeNotProcessable, "eligibility check is not queued for processing")
)

type Service struct {
	checks   CheckStore
	dedup    DedupCache
	verifier Verifier
	standard Enqueuer
	bulk     Enqueuer
	tx       txcontext.Manager
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithTxManager sets the unit of work for terminal writes. Defaults to running
// without a transaction, which suits the in-memory stores.
func WithTxManager(m txcontext.Manager) Option {
	return func(s *Service) {
		s.tx = m
	}
}

func New(checks CheckStore, dedup DedupCache, verifier Verifier, standard, bulk Enqueuer, opts ...Option) (*Service, error) {
	switch {
	case checks == nil:
		return nil, errors.New("check store is required")
	case dedup == nil:
		return nil, errors.New("dedup cache is required")
	case verifier == nil:
		return nil, errors.New("verifier is required")
	case standard == nil || bulk == nil:
		return nil, errors.New("standard and bulk queues are required")
	}
	s := &Service{
		checks:   checks,
		dedup:    dedup,
		verifier: verifier,
		standard: standard,
		bulk:     bulk,
		tx:       txcontext.NoopManager{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"event", event.Type,
			"check_id", event.CheckID,
			"error", err,
		)
	}
}

func groupString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// baseEvent fills the fields every lifecycle event carries.
func baseEvent(ctx context.Context, eventType audit.EventType, check *models.EligibilityCheck) audit.Event {
	return audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Type:      eventType,
		CheckID:   check.ID.String(),
		CheckType: string(check.Type),
		GroupID:   groupString(check.GroupID),
		RequestID: requestcontext.RequestID(ctx),
		Actor:     requestcontext.Actor(ctx),
	}
}
