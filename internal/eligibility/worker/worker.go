// Package worker drains the check queues. Each message names one queued check;
// the worker asks the service to process it and settles the message according
// to the result.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eligo/internal/eligibility/metrics"
	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/service"
	"eligo/internal/platform/queue"
	dErrors "eligo/pkg/domain-errors"
	"eligo/pkg/requestcontext"
)

const defaultBatchSize = 32

// Processor is the part of the check service the worker drives.
type Processor interface {
	Process(ctx context.Context, id uuid.UUID) (models.CheckStatus, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CheckStatus) (*models.EligibilityCheck, error)
}

// Summary tallies one Drain call.
type Summary struct {
	Queue    string `json:"queue"`
	Received int    `json:"received"`
	Resolved int    `json:"resolved"`
	Forced   int    `json:"forced"`
	Dropped  int    `json:"dropped"`
	Retained int    `json:"retained"`
}

// action is how a message was settled; it doubles as the metrics label.
type action string

const (
	actionResolved action = "resolved"
	actionForced   action = "forced_error"
	actionDropped  action = "dropped"
	actionRetained action = "retained"
)

type Worker struct {
	queues    *queue.Registry
	processor Processor
	batchSize int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func New(queues *queue.Registry, processor Processor, opts ...Option) *Worker {
	w := &Worker{
		queues:    queues,
		processor: processor,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Drain processes queueName until it reports no messages or a receive comes
// back empty. Messages left for redelivery are invisible, so the loop ends
// once only those remain.
func (w *Worker) Drain(ctx context.Context, queueName string) (Summary, error) {
	summary := Summary{Queue: queueName}
	q, err := w.queues.Get(queueName)
	if err != nil {
		return summary, err
	}

	depth, err := q.ApproxDepth(ctx)
	if err != nil {
		return summary, fmt.Errorf("queue depth: %w", err)
	}
	for depth > 0 {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		msgs, err := q.ReceiveBatch(ctx, w.batchSize)
		if err != nil {
			return summary, fmt.Errorf("receive batch: %w", err)
		}
		if len(msgs) == 0 {
			break
		}
		for _, msg := range msgs {
			summary.Received++
			switch w.handle(ctx, q, msg) {
			case actionResolved:
				summary.Resolved++
			case actionForced:
				summary.Forced++
			case actionDropped:
				summary.Dropped++
			case actionRetained:
				summary.Retained++
			}
		}
		if depth, err = q.ApproxDepth(ctx); err != nil {
			return summary, fmt.Errorf("queue depth: %w", err)
		}
	}
	w.metrics.SetQueueDepth(queueName, depth)

	if summary.Received > 0 {
		w.logger.InfoContext(ctx, "queue drained",
			"queue", queueName,
			"received", summary.Received,
			"resolved", summary.Resolved,
			"forced", summary.Forced,
			"dropped", summary.Dropped,
			"retained", summary.Retained,
		)
	}
	return summary, nil
}

func (w *Worker) handle(ctx context.Context, q queue.Queue, msg queue.Message) action {
	act := w.settle(ctx, q, msg)
	if act != actionRetained {
		if err := q.Delete(ctx, msg); err != nil {
			// The message comes back after the visibility timeout and is
			// settled again; every branch above tolerates that.
			w.logger.ErrorContext(ctx, "delete message failed",
				"queue", q.Name(),
				"message_id", msg.ID,
				"error", err,
			)
		}
	}
	w.metrics.IncrementWorkerMessage(q.Name(), string(act))
	return act
}

// settle decides what happens to msg without deleting it.
func (w *Worker) settle(ctx context.Context, q queue.Queue, msg queue.Message) action {
	id, err := decodeEnvelope(msg.Body)
	if err != nil {
		w.logger.WarnContext(ctx, "dropping undecodable message",
			"queue", q.Name(),
			"message_id", msg.ID,
			"error", err,
		)
		return actionDropped
	}

	status, err := w.processor.Process(ctx, id)
	switch {
	case err == nil && status.IsTerminal():
		return actionResolved
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		w.logger.WarnContext(ctx, "dropping message for unknown check", "queue", q.Name(), "check_id", id)
		return actionDropped
	case dErrors.HasCode(err, dErrors.CodeNotProcessable):
		// Duplicate delivery of a check someone already finished.
		return actionDropped
	case msg.DequeueCount > 1:
		return w.forceError(ctx, q, id, err)
	default:
		w.logger.InfoContext(ctx, "check left for redelivery",
			"queue", q.Name(),
			"check_id", id,
			"error", err,
		)
		return actionRetained
	}
}

func (w *Worker) forceError(ctx context.Context, q queue.Queue, id uuid.UUID, cause error) action {
	ctx = requestcontext.WithActor(ctx, service.ActorWorker)
	if _, err := w.processor.UpdateStatus(ctx, id, models.StatusError); err != nil {
		w.logger.ErrorContext(ctx, "could not force check to error",
			"queue", q.Name(),
			"check_id", id,
			"error", err,
		)
		return actionRetained
	}
	w.logger.WarnContext(ctx, "check forced to error after redelivery",
		"queue", q.Name(),
		"check_id", id,
		"error", cause,
	)
	return actionForced
}

func decodeEnvelope(body []byte) (uuid.UUID, error) {
	var envelope models.ProcessMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return uuid.Nil, err
	}
	if _, err := models.ParseCheckType(string(envelope.Type)); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(envelope.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("check id: %w", err)
	}
	return id, nil
}

// Run drains every named queue each interval until ctx is cancelled. A
// failing queue is logged and retried on the next tick.
func (w *Worker) Run(ctx context.Context, interval time.Duration, queueNames ...string) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, name := range queueNames {
				if _, err := w.Drain(ctx, name); err != nil {
					if errors.Is(err, queue.ErrUnknownQueue) {
						return err
					}
					if ctx.Err() != nil {
						return nil
					}
					w.logger.ErrorContext(ctx, "scheduled drain failed", "queue", name, "error", err)
				}
			}
		}
	}
}
