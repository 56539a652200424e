package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memMessage struct {
	seq          uint64
	id           string
	body         []byte
	visibleAt    time.Time
	dequeueCount int
	receipt      string
}

// MemoryQueue is an in-process Queue with visibility timeouts. Used for local
// runs and tests.
type MemoryQueue struct {
	mu         sync.Mutex
	name       string
	visibility time.Duration
	messages   map[string]*memMessage
	seq        uint64
	now        func() time.Time
}

type MemoryOption func(*MemoryQueue)

// WithClock overrides time.Now so tests can expire visibility timeouts.
func WithClock(now func() time.Time) MemoryOption {
	return func(q *MemoryQueue) {
		q.now = now
	}
}

func NewMemoryQueue(name string, visibility time.Duration, opts ...MemoryOption) *MemoryQueue {
	q := &MemoryQueue{
		name:       name,
		visibility: visibility,
		messages:   make(map[string]*memMessage),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *MemoryQueue) Name() string { return q.name }

func (q *MemoryQueue) Send(_ context.Context, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	id := uuid.NewString()
	q.seq++
	q.messages[id] = &memMessage{
		seq:       q.seq,
		id:        id,
		body:      append([]byte(nil), body...),
		visibleAt: now,
	}
	return nil
}

func (q *MemoryQueue) ReceiveBatch(_ context.Context, max int) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()

	visible := make([]*memMessage, 0, len(q.messages))
	for _, m := range q.messages {
		if !m.visibleAt.After(now) {
			visible = append(visible, m)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].seq < visible[j].seq
	})
	if len(visible) > max {
		visible = visible[:max]
	}

	out := make([]Message, 0, len(visible))
	for _, m := range visible {
		m.dequeueCount++
		m.visibleAt = now.Add(q.visibility)
		m.receipt = uuid.NewString()
		out = append(out, Message{
			ID:           m.id,
			Receipt:      m.receipt,
			Body:         append([]byte(nil), m.body...),
			DequeueCount: m.dequeueCount,
		})
	}
	return out, nil
}

func (q *MemoryQueue) Delete(_ context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	m, ok := q.messages[msg.ID]
	if !ok || m.receipt != msg.Receipt {
		return nil
	}
	delete(q.messages, msg.ID)
	return nil
}

func (q *MemoryQueue) ApproxDepth(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages), nil
}
