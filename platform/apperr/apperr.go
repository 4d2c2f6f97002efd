// Package apperr defines the typed errors the domain layer returns. Each
// error carries a Kind; the HTTP layer maps kinds to status codes, and the
// call pipeline branches on them to decide between retry, escalation and
// giving up.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies what went wrong.
type Kind int

const (
	// KindUnknown is the zero value for errors built without a kind.
	KindUnknown Kind = iota
	// KindNotFound means the addressed resource does not exist.
	KindNotFound
	// KindValidation means the input cannot be used as given, such as a
	// company number that is not dialable.
	KindValidation
	// KindConflict means current state forbids the operation, such as a
	// pending question that must be answered before the dialogue advances.
	KindConflict
	// KindInternal means a fault on our side with nothing actionable for
	// the caller.
	KindInternal
	// KindUnavailable means an upstream collaborator (telephony provider,
	// LLM endpoint, task queue) refused or failed the operation.
	KindUnavailable
	// KindTimeout means a bounded wait elapsed first, such as the call
	// monitoring ceiling.
	KindTimeout
	// KindExhausted means a retry or attempt budget was fully consumed.
	KindExhausted
)

// Error is a typed domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, optional
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to the response code the API surfaces.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindInternal:
		return http.StatusInternalServerError
	case KindUnavailable, KindExhausted:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadRequest
	}
}

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation builds a KindValidation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Conflict builds a KindConflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Internal builds a KindInternal error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// Unavailable builds a KindUnavailable error.
func Unavailable(message string) *Error {
	return New(KindUnavailable, message)
}

// Timeout builds a KindTimeout error.
func Timeout(message string) *Error {
	return New(KindTimeout, message)
}

// Exhausted builds a KindExhausted error.
func Exhausted(message string) *Error {
	return New(KindExhausted, message)
}

// Is reports whether err is, or wraps, an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
