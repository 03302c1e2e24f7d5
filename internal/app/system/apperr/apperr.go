// Package apperr defines the error taxonomy shared by the fundraising engines.
//
// Caller-visible kinds (validation, not found, permission, conflict) reject a
// request. KindConcurrency is internal: engines recover from it by retrying
// and never surface it to HTTP callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindPermission
	KindConflict
	KindConcurrency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindConflict:
		return "conflict"
	case KindConcurrency:
		return "concurrency"
	default:
		return "internal"
	}
}

// Error is a classified failure. Entry identifies the offending input element
// (e.g. "divisions[2]") when the operation processed a list.
type Error struct {
	Kind  Kind
	Op    string
	Entry string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Entry != "" {
		msg = e.Entry + ": " + msg
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrVersionConflict is returned by stores when a compare-and-swap write
// finds the record changed since it was read.
var ErrVersionConflict = &Error{Kind: KindConcurrency, Msg: "record was modified concurrently"}

// Is lets errors.Is(err, ErrVersionConflict) match any concurrency error.
func (e *Error) Is(target error) bool {
	return target == ErrVersionConflict && e.Kind == KindConcurrency
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input.
func Validation(op, format string, args ...any) *Error {
	return newf(KindValidation, op, format, args...)
}

// NotFound reports a missing referenced entity.
func NotFound(op, format string, args ...any) *Error {
	return newf(KindNotFound, op, format, args...)
}

// Permission reports a hierarchy or ownership check failure.
func Permission(op, format string, args ...any) *Error {
	return newf(KindPermission, op, format, args...)
}

// Conflict reports a state conflict (existing active target, already divided).
func Conflict(op, format string, args ...any) *Error {
	return newf(KindConflict, op, format, args...)
}

// Wrap classifies err under op, keeping it as the cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithEntry returns a copy of e naming the offending input element.
func (e *Error) WithEntry(entry string) *Error {
	c := *e
	c.Entry = entry
	return &c
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the response status a handler should use.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
