package sources

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"eligo/internal/eligibility/metrics"
	"eligo/internal/eligibility/models"
	"eligo/pkg/platform/circuit"
)

const tracerName = "eligo/internal/eligibility/sources"

// Guarded wraps a Checker with a per-call deadline, an optional circuit breaker,
// a span, and metrics. Only retryable failures (timeouts, outages) count
// against the breaker; a well-formed refusal means the upstream is healthy.
type Guarded struct {
	next    Checker
	timeout time.Duration
	breaker *circuit.Breaker
	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type GuardOption func(*Guarded)

func WithBreaker(b *circuit.Breaker) GuardOption {
	return func(g *Guarded) {
		g.breaker = b
	}
}

func WithGuardMetrics(m *metrics.Metrics) GuardOption {
	return func(g *Guarded) {
		g.metrics = m
	}
}

func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guarded) {
		g.logger = logger
	}
}

func WithTracer(t trace.Tracer) GuardOption {
	return func(g *Guarded) {
		g.tracer = t
	}
}

// Guard bounds next with timeout. A zero timeout leaves the caller's deadline in charge.
func Guard(next Checker, timeout time.Duration, opts ...GuardOption) *Guarded {
	g := &Guarded{
		next:    next,
		timeout: timeout,
		tracer:  otel.Tracer(tracerName),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guarded) ID() string            { return g.next.ID() }
func (g *Guarded) Source() models.Source { return g.next.Source() }

func (g *Guarded) Check(ctx context.Context, id models.Identity) (models.Outcome, error) {
	ctx, span := g.tracer.Start(ctx, "source.check", trace.WithAttributes(
		attribute.String("source.id", g.next.ID()),
		attribute.String("source.authority", string(g.next.Source())),
	))
	defer span.End()

	if g.breaker != nil && !g.breaker.Allow() {
		err := NewCheckerError(ErrorProviderOutage, g.next.ID(), "circuit open", nil)
		g.finish(ctx, span, models.OutcomeError, err, 0)
		return models.OutcomeError, err
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	outcome, err := g.next.Check(callCtx, id)
	elapsed := time.Since(start)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && GetCategory(err) != ErrorTimeout {
		err = NewCheckerError(ErrorTimeout, g.next.ID(), "deadline exceeded", err)
	}
	if err != nil {
		outcome = models.OutcomeError
	}
	g.recordBreaker(ctx, err)
	g.finish(ctx, span, outcome, err, elapsed)
	return outcome, err
}

func (g *Guarded) recordBreaker(ctx context.Context, err error) {
	if g.breaker == nil {
		return
	}
	var change circuit.StateChange
	if err != nil && IsRetryable(err) {
		_, change = g.breaker.RecordFailure()
	} else {
		_, change = g.breaker.RecordSuccess()
	}
	switch {
	case change.Opened:
		g.logger.WarnContext(ctx, "circuit breaker opened", "breaker", g.breaker.Name(), "source", g.next.ID())
		g.metrics.SetBreakerOpen(g.breaker.Name(), true)
	case change.Closed:
		g.logger.InfoContext(ctx, "circuit breaker closed", "breaker", g.breaker.Name(), "source", g.next.ID())
		g.metrics.SetBreakerOpen(g.breaker.Name(), false)
	}
}

func (g *Guarded) finish(ctx context.Context, span trace.Span, outcome models.Outcome, err error, elapsed time.Duration) {
	span.SetAttributes(attribute.String("source.outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(GetCategory(err)))
		g.logger.WarnContext(ctx, "source check failed",
			"source", g.next.ID(),
			"category", GetCategory(err),
			"error", err,
		)
	}
	if elapsed > 0 {
		g.metrics.ObserveSourceLatency(g.next.ID(), elapsed)
	}
	g.metrics.IncrementSourceOutcome(g.next.ID(), string(outcome))
}
