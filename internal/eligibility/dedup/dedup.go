// Package dedup answers repeat questions from earlier verification outcomes.
//
// A question is identified by its fingerprint (models.Fingerprint). Entries
// are append-only; an entry older than the freshness window is ignored on read
// rather than deleted.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eligo/internal/eligibility/metrics"
	"eligo/internal/eligibility/models"
	dErrors "eligo/pkg/domain-errors"
	"eligo/pkg/platform/sentinel"
	"eligo/pkg/requestcontext"
)

// Store persists cache entries.
type Store interface {
	Save(ctx context.Context, entry *models.CheckHash) error
	FindFresh(ctx context.Context, hash string, since time.Time) (*models.CheckHash, error)
}

type Cache struct {
	store     Store
	freshness time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New builds a cache. freshness must be positive.
func New(store Store, freshness time.Duration, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, errors.New("dedup store is required")
	}
	if freshness <= 0 {
		return nil, fmt.Errorf("freshness window must be positive, got %s", freshness)
	}
	c := &Cache{store: store, freshness: freshness, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Exists returns the newest fresh entry for req's fingerprint, or nil when
// there is none.
func (c *Cache) Exists(ctx context.Context, req models.CheckRequest) (*models.CheckHash, error) {
	cutoff := requestcontext.Now(ctx).Add(-c.freshness)
	entry, err := c.store.FindFresh(ctx, models.Fingerprint(req), cutoff)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			c.metrics.IncrementDedupMiss()
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "dedup lookup failed")
	}
	c.metrics.IncrementDedupHit()
	return entry, nil
}

// Create appends an entry for req and returns it. It writes through the
// transaction in ctx and never commits; the caller owns the unit of work and
// announces the entry once it has committed.
func (c *Cache) Create(ctx context.Context, req models.CheckRequest, outcome models.Outcome, source models.Source) (*models.CheckHash, error) {
	if !outcome.IsCacheable() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("outcome %q cannot be cached", outcome))
	}
	entry := &models.CheckHash{
		ID:        uuid.New(),
		Hash:      models.Fingerprint(req),
		Type:      req.Type,
		Outcome:   outcome.Status(),
		Source:    source,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := c.store.Save(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save dedup entry")
	}
	c.logger.DebugContext(ctx, "dedup entry written",
		"hash_id", entry.ID,
		"outcome", entry.Outcome,
		"source", entry.Source,
	)
	return entry, nil
}
