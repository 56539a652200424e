package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "eligo/pkg/platform/audit"
	txcontext "eligo/pkg/platform/tx"
)

// Store implements audit.Store with the transactional outbox pattern. When the
// caller's context carries a transaction the event commits with it; the outbox
// relay publishes rows to Kafka afterwards.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Payload is the JSON document stored in the outbox and published to Kafka.
type Payload struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Timestamp   string `json:"timestamp"`
	CheckID     string `json:"check_id,omitempty"`
	CheckType   string `json:"check_type,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
	Source      string `json:"source,omitempty"`
	SubjectHash string `json:"subject_hash,omitempty"`
	Reason      string `json:"reason,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	payload := Payload{
		ID:          eventID.String(),
		Type:        string(event.Type),
		Timestamp:   event.Timestamp.Format(time.RFC3339Nano),
		CheckID:     event.CheckID,
		CheckType:   event.CheckType,
		GroupID:     event.GroupID,
		Outcome:     event.Outcome,
		Source:      event.Source,
		SubjectHash: event.SubjectHash,
		Reason:      event.Reason,
		RequestID:   event.RequestID,
		Actor:       event.Actor,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateID := event.CheckID
	if aggregateID == "" {
		aggregateID = eventID.String()
	}

	const query = `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, 'eligibility_check', $2, $3, $4, $5)
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		eventID,
		aggregateID,
		string(event.Type),
		body,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}
