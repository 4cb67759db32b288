package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies failures the conversation engine knows how to recover from.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindConcurrencyTimeout  Kind = "CONCURRENCY_TIMEOUT"
	KindQueueOverflow       Kind = "QUEUE_OVERFLOW"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindDuplicateCommit     Kind = "DUPLICATE_COMMIT"
	KindInvalidTransition   Kind = "INVALID_TRANSITION"
	KindNotFound            Kind = "NOT_FOUND"
	KindInternal            Kind = "INTERNAL"
)

// Error is a structured error carrying a kind and the operation that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

// New creates a new error with the given kind, operation, message and optional cause.
func New(kind Kind, op, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Op, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrConcurrencyTimeout  = &Error{Kind: KindConcurrencyTimeout}
	ErrQueueOverflow       = &Error{Kind: KindQueueOverflow}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrDuplicateCommit     = &Error{Kind: KindDuplicateCommit}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrNotFound            = &Error{Kind: KindNotFound}
)

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Validation(op, message string) *Error {
	return New(KindValidation, op, message, nil)
}

func Upstream(op, message string, cause error) *Error {
	return New(KindUpstreamUnavailable, op, message, cause)
}
