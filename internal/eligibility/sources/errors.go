package sources

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy shared by all checkers.
type ErrorCategory string

const (
	// ErrorTimeout: the source did not answer within its deadline.
	ErrorTimeout ErrorCategory = "timeout"
	// ErrorBadData: the response could not be decoded.
	ErrorBadData ErrorCategory = "bad_data"
	// ErrorProviderOutage: transport failure, 5xx, or the breaker is open.
	ErrorProviderOutage ErrorCategory = "provider_outage"
	// ErrorContractMismatch: an unexpected status code or response shape.
	ErrorContractMismatch ErrorCategory = "contract_mismatch"
	// ErrorInvariant: the data broke a rule the evaluator depends on.
	ErrorInvariant ErrorCategory = "invariant"
	ErrorInternal  ErrorCategory = "internal"
)

// CheckerError wraps a checker failure with its category.
type CheckerError struct {
	Category   ErrorCategory
	CheckerID  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *CheckerError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("checker %s [%s]: %s: %v", e.CheckerID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("checker %s [%s]: %s", e.CheckerID, e.Category, e.Message)
}

func (e *CheckerError) Unwrap() error {
	return e.Underlying
}

// NewCheckerError builds a categorized error. Timeouts and outages are retryable.
func NewCheckerError(category ErrorCategory, checkerID, message string, underlying error) *CheckerError {
	return &CheckerError{
		Category:   category,
		CheckerID:  checkerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorProviderOutage,
	}
}

// IsRetryable reports whether redelivering the work might succeed.
func IsRetryable(err error) bool {
	var ce *CheckerError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// GetCategory extracts the category, defaulting to ErrorInternal.
func GetCategory(err error) ErrorCategory {
	var ce *CheckerError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ErrorInternal
}
