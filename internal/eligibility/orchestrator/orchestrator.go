// Package orchestrator picks which source checkers answer a claimant and in
// what order.
//
// An NI number goes to the tax-authority extract first; when that extract has
// no record of the parent the benefits department is asked instead, since the
// extract is a point-in-time snapshot and may lag. A NASS number goes to the
// immigration extract only: the benefits department does not know that
// identifier. A checker failure ends the chain; it never falls back.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/sources"
)

// ErrNoIdentifier means the identity carries neither an NI nor a NASS number.
var ErrNoIdentifier = errors.New("identity has no NI or NASS number")

// Chain is a primary checker and the checker consulted when the primary does
// not know the parent. Fallback may be nil.
type Chain struct {
	Primary  sources.Checker
	Fallback sources.Checker
}

// Decision is the orchestrator's answer and which checker gave it.
type Decision struct {
	Outcome   models.Outcome
	Source    models.Source
	CheckerID string
	FellBack  bool
}

type Orchestrator struct {
	byNINO Chain
	byNASS Chain
	logger *slog.Logger
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New wires the two chains. taxAuthority and immigration are required;
// benefits may be nil to disable the NI fallback.
func New(taxAuthority, immigration, benefits sources.Checker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		byNINO: Chain{Primary: taxAuthority, Fallback: benefits},
		byNASS: Chain{Primary: immigration},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Verify runs the chain selected by the identity's identifier. On failure the
// Decision still names the checker that failed and carries OutcomeError.
func (o *Orchestrator) Verify(ctx context.Context, id models.Identity) (Decision, error) {
	switch {
	case id.NationalInsuranceNumber != "":
		return o.run(ctx, o.byNINO, id)
	case id.NationalAsylumSeekerServiceNumber != "":
		return o.run(ctx, o.byNASS, id)
	default:
		return Decision{Outcome: models.OutcomeError}, ErrNoIdentifier
	}
}

func (o *Orchestrator) run(ctx context.Context, chain Chain, id models.Identity) (Decision, error) {
	decision, err := o.ask(ctx, chain.Primary, id)
	if err != nil {
		return decision, err
	}
	if decision.Outcome != models.OutcomeParentNotFound || chain.Fallback == nil {
		return decision, nil
	}

	o.logger.DebugContext(ctx, "primary source has no record, falling back",
		"primary", chain.Primary.ID(),
		"fallback", chain.Fallback.ID(),
	)
	decision, err = o.ask(ctx, chain.Fallback, id)
	decision.FellBack = true
	return decision, err
}

func (o *Orchestrator) ask(ctx context.Context, checker sources.Checker, id models.Identity) (Decision, error) {
	outcome, err := checker.Check(ctx, id)
	d := Decision{Outcome: outcome, Source: checker.Source(), CheckerID: checker.ID()}
	if err != nil {
		d.Outcome = models.OutcomeError
		return d, err
	}
	if !outcome.IsCacheable() {
		d.Outcome = models.OutcomeError
		return d, sources.NewCheckerError(sources.ErrorInternal, checker.ID(), "checker returned "+string(outcome)+" without an error", nil)
	}
	return d, nil
}
