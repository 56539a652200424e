package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"eligo/internal/eligibility/handler"
	eligibilitymetrics "eligo/internal/eligibility/metrics"
	"eligo/internal/eligibility/worker"
	"eligo/internal/platform/config"
	"eligo/internal/platform/httpserver"
	"eligo/internal/platform/logger"
	httpmetrics "eligo/internal/platform/metrics"
	"eligo/internal/platform/queue"
	"eligo/pkg/platform/middleware/requestid"
	"eligo/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, runs the
// scheduled queue drain and keeps the lifecycle small. Business logic lives in
// internal/eligibility.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "eligo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	m := eligibilitymetrics.New()
	auditor := newAuditPublisher(infra, log)
	defer auditor.Close()

	queues := newQueues(cfg, infra)
	svc, err := newService(cfg, infra, queues, auditor, m, log)
	if err != nil {
		return err
	}
	drainer := worker.New(queues, svc,
		worker.WithLogger(log),
		worker.WithMetrics(m),
		worker.WithBatchSize(cfg.Queue.BatchSize),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(httpmetrics.New().Middleware)
	r.Get("/health", httpserver.Health(infra.Probes()))
	r.Handle("/metrics", promhttp.Handler())
	handler.New(svc, drainer, log).Register(r)

	srv := httpserver.New(cfg.Server.Addr, r)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting eligibility service",
			"addr", cfg.Server.Addr,
			"dwp_mode", cfg.DWP.Mode,
			"postgres", infra.DB != nil,
			"redis", infra.Redis != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	if cfg.Worker.Interval > 0 {
		g.Go(func() error {
			return drainer.Run(gctx, cfg.Worker.Interval, cfg.Queue.Standard, cfg.Queue.Bulk)
		})
	}
	if relay := newOutboxRelay(gctx, cfg, infra, log); relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}

	err = g.Wait()
	log.Info("eligibility service stopped")
	return err
}

func newQueues(cfg config.Config, infra *infra) *queue.Registry {
	if infra.Redis != nil {
		return queue.NewRegistry(
			queue.NewRedisQueue(infra.Redis.Client, cfg.Queue.Standard, cfg.Queue.VisibilityTimeout),
			queue.NewRedisQueue(infra.Redis.Client, cfg.Queue.Bulk, cfg.Queue.VisibilityTimeout),
		)
	}
	return queue.NewRegistry(
		queue.NewMemoryQueue(cfg.Queue.Standard, cfg.Queue.VisibilityTimeout),
		queue.NewMemoryQueue(cfg.Queue.Bulk, cfg.Queue.VisibilityTimeout),
	)
}
