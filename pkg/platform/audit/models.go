package audit

import (
	"context"
	"time"
)

// EventType names an auditable step in a check's lifecycle.
type EventType string

const (
	// EventCheckCached: a submission was answered from the dedup cache.
	EventCheckCached EventType = "check_cached"
	// EventCheckResolved: a queued check reached a verification outcome.
	EventCheckResolved EventType = "check_resolved"
	// EventCheckHashCreated: a dedup entry was written for a fingerprint.
	EventCheckHashCreated EventType = "check_hash_created"
	// EventCheckForcedError: the queue worker gave up on a check.
	EventCheckForcedError EventType = "check_forced_error"
	// EventCheckStatusOverridden: an administrator changed a check's status.
	EventCheckStatusOverridden EventType = "check_status_overridden"
)

// Event is transport-agnostic so stores and sinks can fan out. It never carries
// raw identity fields; SubjectHash is the check fingerprint.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	CheckID     string
	CheckType   string
	GroupID     string
	Outcome     string
	Source      string
	SubjectHash string
	Reason      string
	RequestID   string
	Actor       string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
