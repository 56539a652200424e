// Package domainerrors carries the error codes services hand back to callers.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate them into
// coded errors here so handlers and the queue worker can branch on the code alone.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeValidation rejects malformed submissions before any record exists.
	CodeValidation Code = "validation"
	// CodeNotFound means the addressed check or group does not exist.
	CodeNotFound Code = "not_found"
	// CodeNotProcessable means a precondition of the check lifecycle was violated.
	CodeNotProcessable Code = "not_processable"
	// CodeUpstreamUnavailable covers source checker I/O failures and bad responses.
	CodeUpstreamUnavailable Code = "upstream_unavailable"
	// CodeInvariantViolation means upstream data broke a contract we rely on.
	CodeInvariantViolation Code = "invariant_violation"
	CodeConflict           Code = "conflict"
	CodeBadRequest         Code = "bad_request"
	CodeInternal           Code = "internal"
)

// Error is a coded domain error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
