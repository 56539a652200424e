package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CheckType names the scheme an eligibility question is asked for.
type CheckType string

const (
	CheckTypeFreeSchoolMeals       CheckType = "FreeSchoolMeals"
	CheckTypeTwoYearOffer          CheckType = "TwoYearOffer"
	CheckTypeEarlyYearPupilPremium CheckType = "EarlyYearPupilPremium"
)

func ParseCheckType(s string) (CheckType, error) {
	t := CheckType(s)
	if _, ok := payloadSchemas[t]; !ok {
		return "", fmt.Errorf("unknown check type %q", s)
	}
	return t, nil
}

// CheckStatus is the lifecycle state of an EligibilityCheck.
//
// queuedForProcessing is the only non-terminal state. Verification moves a
// check to exactly one terminal state; only the administrative override can
// move it back.
type CheckStatus string

const (
	StatusQueuedForProcessing CheckStatus = "queuedForProcessing"
	StatusEligible            CheckStatus = "eligible"
	StatusNotEligible         CheckStatus = "notEligible"
	StatusParentNotFound      CheckStatus = "parentNotFound"
	StatusError               CheckStatus = "error"
)

var knownStatuses = map[CheckStatus]struct{}{
	StatusQueuedForProcessing: {},
	StatusEligible:            {},
	StatusNotEligible:         {},
	StatusParentNotFound:      {},
	StatusError:               {},
}

func ParseCheckStatus(s string) (CheckStatus, error) {
	st := CheckStatus(s)
	if _, ok := knownStatuses[st]; !ok {
		return "", fmt.Errorf("unknown check status %q", s)
	}
	return st, nil
}

func (s CheckStatus) IsTerminal() bool {
	return s != StatusQueuedForProcessing
}

// IsVerificationOutcome reports whether s is an answer a source checker can
// give. Error is terminal but never cached.
func (s CheckStatus) IsVerificationOutcome() bool {
	return s == StatusEligible || s == StatusNotEligible || s == StatusParentNotFound
}

// Source identifies which authority produced an outcome.
type Source string

const (
	SourceTaxAuthority       Source = "HMRC"
	SourceImmigration        Source = "HO"
	SourceBenefitsDepartment Source = "DWP"
)

// EligibilityCheck is the unit of work driven through the pipeline.
type EligibilityCheck struct {
	ID          uuid.UUID
	Type        CheckType
	Status      CheckStatus
	Payload     []byte
	GroupID     *uuid.UUID
	Sequence    *int
	CheckHashID *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CheckHash is a dedup cache entry. Entries are append-only; freshness is
// decided at read time.
type CheckHash struct {
	ID        uuid.UUID
	Hash      string
	Type      CheckType
	Outcome   CheckStatus
	Source    Source
	CreatedAt time.Time
}

// StatusCount is one row of a group-by-status aggregation.
type StatusCount struct {
	Status CheckStatus
	Count  int
}

// BulkStatus is progress of a bulk group.
type BulkStatus struct {
	Total    int
	Complete int
}

// BulkResult is one item of a bulk group, positioned by submission sequence.
type BulkResult struct {
	CheckID  uuid.UUID
	Sequence int
	Status   CheckStatus
	Identity Identity
}

// ProcessMessage is the queue envelope.
type ProcessMessage struct {
	Type CheckType `json:"type"`
	ID   string    `json:"id"`
}

// Outcome is what a source checker concluded about a claimant.
type Outcome string

const (
	OutcomeEligible       Outcome = "eligible"
	OutcomeNotEligible    Outcome = "notEligible"
	OutcomeParentNotFound Outcome = "parentNotFound"
	OutcomeError          Outcome = "error"
)

// Status maps an outcome onto the terminal check status it produces.
func (o Outcome) Status() CheckStatus {
	switch o {
	case OutcomeEligible:
		return StatusEligible
	case OutcomeNotEligible:
		return StatusNotEligible
	case OutcomeParentNotFound:
		return StatusParentNotFound
	default:
		return StatusError
	}
}

// IsCacheable reports whether the outcome may be written to the dedup cache.
func (o Outcome) IsCacheable() bool {
	return o == OutcomeEligible || o == OutcomeNotEligible || o == OutcomeParentNotFound
}
