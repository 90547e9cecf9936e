package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so callers can decide between rejecting
// the input, reloading fresh state, or surfacing an internal fault.
type Kind uint8

const (
	// KindValidation means the input itself is malformed (field + message).
	KindValidation Kind = iota + 1
	// KindBusinessRule means a named invariant was violated.
	KindBusinessRule
	// KindConflict means the write collided with existing data
	// (duplicate key, seat exhaustion).
	KindConflict
	// KindOptimisticLock means a versioned conditional write affected zero
	// rows. Unlike Conflict it means "retry with fresh data".
	KindOptimisticLock
	// KindNotFound means the referenced entity does not exist.
	KindNotFound
	// KindInternal means a store or driver failure not attributable to
	// domain logic.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBusinessRule:
		return "business rule"
	case KindConflict:
		return "conflict"
	case KindOptimisticLock:
		return "optimistic lock"
	case KindNotFound:
		return "not found"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the single error type produced by the domain and persistence
// layers. Field is set for validation and conflict errors.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s - %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes sentinel comparisons work through wrapping: two domain errors
// match when kind, field and message are equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Field == t.Field && e.Message == t.Message
}

var (
	// ErrOptimisticLock is returned when a versioned conditional write
	// affected zero rows. The persistence layer never retries; the caller
	// must reload, re-validate and reapply.
	ErrOptimisticLock = &Error{Kind: KindOptimisticLock, Message: "optimistic lock conflict"}

	// ErrNoSeatsAvailable is returned when a guarded seat decrement finds
	// fewer seats than requested. It is a business conflict, not a
	// retryable technical failure.
	ErrNoSeatsAvailable = &Error{Kind: KindConflict, Field: "available_seats", Message: "no seats available"}
)

func NewValidation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func NewBusinessRule(message string) *Error {
	return &Error{Kind: KindBusinessRule, Message: message}
}

func NewConflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewInternal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: cause.Error(), cause: cause}
}

// KindOf reports the kind of err, or zero if err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
