// Package apperr classifies failures so the request surface can map them
// to a status code while preserving the exact caller-facing message.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindPrecondition
	KindNotFound
	KindConflict
	KindForbidden
	KindTransport
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindTransport:
		return "transport"
	case KindPersistence:
		return "persistence"
	}
	return "unknown"
}

// Error carries a Kind, the message shown to callers and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(msg string) *Error   { return New(KindValidation, msg, nil) }
func Precondition(msg string) *Error { return New(KindPrecondition, msg, nil) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg, nil) }
func Conflict(msg string) *Error     { return New(KindConflict, msg, nil) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg, nil) }

// Persistence hides the storage cause behind a generic message.
func Persistence(err error) *Error {
	return New(KindPersistence, "internal error", err)
}

func Transport(err error) *Error {
	return New(KindTransport, "notification publish failed", err)
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the caller-facing message for err. Unclassified errors
// never leak their text.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindPersistence && e.Kind != KindUnknown {
		return e.Msg
	}
	return "internal error"
}
