// Package publisher emits audit events without putting the sink on the critical path.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "eligo/pkg/platform/audit"
	"eligo/pkg/platform/audit/worker"
)

// Publisher writes events synchronously, or through a bounded buffer drained by
// a worker goroutine when WithAsyncBuffer is set. In async mode a full buffer
// drops the event and logs it.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	inbox  chan audit.Event
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		w := worker.NewWorker(store, p.inbox, worker.WithLogger(p.logger))
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
	}
	return p
}

// Emit records event. Async mode never returns an error.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.WarnContext(ctx, "audit publisher closed, dropping event",
			"event", event.Type,
			"check_id", event.CheckID,
		)
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"event", event.Type,
			"check_id", event.CheckID,
		)
	}
	return nil
}

// Close drains buffered events and stops the worker.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}
