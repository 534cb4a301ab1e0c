// Package apperr defines the error taxonomy shared by services and the
// HTTP layer. Services attach a Kind; handlers map it to a status code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindPreconditionFailed
	KindNotFound
	KindConflict
	KindTimeout
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTimeout:
		return "timeout"
	case KindInfrastructure:
		return "infrastructure_error"
	default:
		return "internal_error"
	}
}

// Error is a classified error. Details is safe to show callers; Err is not.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// FieldError names one offending field of one input row (1-based).
type FieldError struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Validation reports malformed client input.
func Validation(msg string, details any) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// PreconditionFailed reports an operation attempted against unusable state.
func PreconditionFailed(msg string, details any) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: msg, Details: details}
}

// NotFound wraps a missing-entity sentinel.
func NotFound(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

// Conflict wraps a duplicate-key sentinel.
func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

// Timeout reports a deadline hit before any work could be done.
func Timeout(msg string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: msg, Err: err}
}

// Infrastructure wraps a storage or network failure. The message is kept
// generic; err carries the detail for logs.
func Infrastructure(msg string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
