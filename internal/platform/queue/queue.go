// Package queue abstracts the at-least-once message queue that feeds the
// eligibility worker. Implementations expose a per-message dequeue count so
// callers can tell a first delivery from a redelivery.
package queue

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownQueue is a fatal configuration error.
var ErrUnknownQueue = errors.New("unknown queue")

// Message is one delivery of a queued body.
type Message struct {
	ID string
	// Receipt identifies this delivery; Delete requires it so a stale receiver
	// cannot acknowledge a message that was redelivered to someone else.
	Receipt      string
	Body         []byte
	DequeueCount int
}

// Queue is the minimal contract the worker depends on.
type Queue interface {
	Name() string
	Send(ctx context.Context, body []byte) error
	// ReceiveBatch hides returned messages for the visibility timeout.
	ReceiveBatch(ctx context.Context, max int) ([]Message, error)
	Delete(ctx context.Context, msg Message) error
	// ApproxDepth counts stored messages, visible or not.
	ApproxDepth(ctx context.Context) (int, error)
}

// Registry resolves queues by declared name.
type Registry struct {
	queues map[string]Queue
}

func NewRegistry(queues ...Queue) *Registry {
	r := &Registry{queues: make(map[string]Queue, len(queues))}
	for _, q := range queues {
		r.queues[q.Name()] = q
	}
	return r
}

func (r *Registry) Get(name string) (Queue, error) {
	q, ok := r.queues[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQueue, name)
	}
	return q, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.queues))
	for name := range r.queues {
		names = append(names, name)
	}
	return names
}
