package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"eligo/internal/eligibility/dedup"
	"eligo/internal/eligibility/entitlement"
	"eligo/internal/eligibility/metrics"
	"eligo/internal/eligibility/orchestrator"
	"eligo/internal/eligibility/service"
	"eligo/internal/eligibility/sources"
	"eligo/internal/eligibility/sources/dwp"
	"eligo/internal/eligibility/sources/ecs"
	"eligo/internal/eligibility/sources/extract"
	"eligo/internal/eligibility/store/checkhashes"
	"eligo/internal/eligibility/store/checks"
	"eligo/internal/eligibility/store/reference"
	"eligo/internal/platform/config"
	"eligo/internal/platform/httpserver"
	"eligo/internal/platform/kafka"
	"eligo/internal/platform/postgres"
	"eligo/internal/platform/queue"
	"eligo/internal/platform/redis"
	audit "eligo/pkg/platform/audit"
	"eligo/pkg/platform/audit/outbox"
	"eligo/pkg/platform/audit/publisher"
	auditmemory "eligo/pkg/platform/audit/store/memory"
	auditpostgres "eligo/pkg/platform/audit/store/postgres"
	"eligo/pkg/platform/circuit"
	txcontext "eligo/pkg/platform/tx"
)

// extractTimeout bounds a reference-extract lookup.
const extractTimeout = 5 * time.Second

const auditBufferSize = 1024

// infra holds the optional backing services. A nil field means the in-memory
// implementation is used for that concern.
type infra struct {
	DB    *sql.DB
	Redis *redis.Client
	Kafka *kgo.Client
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	i := &infra{}
	db, err := postgres.Open(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	i.DB = db
	if db != nil && cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			i.Close()
			return nil, err
		}
		log.Info("database schema applied")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		i.Close()
		return nil, err
	}
	i.Redis = rc

	kc, err := kafka.New(cfg.Kafka)
	if err != nil {
		i.Close()
		return nil, err
	}
	i.Kafka = kc
	return i, nil
}

func (i *infra) Probes() map[string]httpserver.Probe {
	probes := make(map[string]httpserver.Probe)
	if i.DB != nil {
		probes["postgres"] = i.DB.PingContext
	}
	if i.Redis != nil {
		probes["redis"] = i.Redis.Health
	}
	return probes
}

func (i *infra) Close() {
	if i.Kafka != nil {
		i.Kafka.Close()
	}
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.DB != nil {
		_ = i.DB.Close()
	}
}

// newAuditPublisher buffers events so audit writes never join, or abort, the
// business transaction they describe.
func newAuditPublisher(i *infra, log *slog.Logger) *publisher.Publisher {
	var store audit.Store = auditmemory.NewInMemoryStore()
	if i.DB != nil {
		store = auditpostgres.New(i.DB)
	}
	return publisher.NewPublisher(store,
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(auditBufferSize),
	)
}

// newOutboxRelay returns nil unless both Postgres and Kafka are configured.
func newOutboxRelay(ctx context.Context, cfg config.Config, i *infra, log *slog.Logger) *outbox.Relay {
	if i.DB == nil || i.Kafka == nil {
		return nil
	}
	if err := kafka.EnsureTopic(ctx, i.Kafka, cfg.Kafka.AuditTopic, cfg.Kafka.Partitions); err != nil {
		log.Warn("could not ensure audit topic; relay will retry on publish", "topic", cfg.Kafka.AuditTopic, "error", err)
	}
	return outbox.NewRelay(i.DB, i.Kafka, cfg.Kafka.AuditTopic,
		outbox.WithLogger(log),
		outbox.WithInterval(cfg.Kafka.Interval),
	)
}

type referenceExtract interface {
	extract.TaxAuthorityExtract
	extract.ImmigrationExtract
}

func newService(cfg config.Config, i *infra, queues *queue.Registry, auditor *publisher.Publisher, m *metrics.Metrics, log *slog.Logger) (*service.Service, error) {
	var (
		checkStore service.CheckStore = checks.NewInMemoryStore()
		hashStore  dedup.Store        = checkhashes.NewInMemoryStore()
		refStore   referenceExtract   = reference.NewInMemoryStore()
		tx         txcontext.Manager  = txcontext.NoopManager{}
	)
	if i.DB != nil {
		checkStore = checks.NewPostgresStore(i.DB)
		hashStore = checkhashes.NewPostgresStore(i.DB)
		refStore = reference.NewPostgresStore(i.DB)
		tx = txcontext.NewSQLManager(i.DB)
	}

	cache, err := dedup.New(hashStore, cfg.Eligibility.HashFreshness,
		dedup.WithLogger(log),
		dedup.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	benefits, err := newBenefitsChecker(cfg, log)
	if err != nil {
		return nil, err
	}
	breaker := circuit.New("benefits_department",
		circuit.WithFailureThreshold(cfg.DWP.FailureThreshold),
		circuit.WithCooldown(cfg.DWP.Cooldown),
	)
	guard := func(c sources.Checker, timeout time.Duration, extra ...sources.GuardOption) sources.Checker {
		opts := append([]sources.GuardOption{sources.WithGuardMetrics(m), sources.WithGuardLogger(log)}, extra...)
		return sources.Guard(c, timeout, opts...)
	}
	verifier := orchestrator.New(
		guard(extract.NewTaxAuthorityChecker(refStore), extractTimeout),
		guard(extract.NewImmigrationChecker(refStore), extractTimeout),
		guard(benefits, cfg.DWP.Timeout, sources.WithBreaker(breaker)),
		orchestrator.WithLogger(log),
	)

	standard, err := queues.Get(cfg.Queue.Standard)
	if err != nil {
		return nil, err
	}
	bulk, err := queues.Get(cfg.Queue.Bulk)
	if err != nil {
		return nil, err
	}
	return service.New(checkStore, cache, verifier, standard, bulk,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(auditor),
		service.WithTxManager(tx),
	)
}

func newBenefitsChecker(cfg config.Config, log *slog.Logger) (sources.Checker, error) {
	client := &http.Client{Timeout: cfg.DWP.Timeout}
	switch cfg.DWP.Mode {
	case config.DWPModeECS:
		return ecs.NewChecker(cfg.ECS.URL, cfg.ECS.LocalAuthority,
			ecs.WithHTTPClient(client),
			ecs.WithCredentials(cfg.ECS.Username, cfg.ECS.Password),
			ecs.WithLogger(log),
		), nil
	case config.DWPModeCitizenAPI:
		evaluator, err := entitlement.NewEvaluator(entitlement.Thresholds{
			entitlement.Pence(cfg.Eligibility.UCThreshold1),
			entitlement.Pence(cfg.Eligibility.UCThreshold2),
			entitlement.Pence(cfg.Eligibility.UCThreshold3),
		})
		if err != nil {
			return nil, fmt.Errorf("universal credit thresholds: %w", err)
		}
		return dwp.NewChecker(cfg.DWP.BaseURL, evaluator,
			dwp.WithHTTPClient(client),
			dwp.WithAccessToken(cfg.DWP.AccessToken),
			dwp.WithClaimWindow(cfg.DWP.ClaimWindow),
			dwp.WithLogger(log),
		), nil
	default:
		return nil, fmt.Errorf("unknown DWP mode %q", cfg.DWP.Mode)
	}
}
