// Package apperr classifies request failures so handlers can map them to
// HTTP statuses without inspecting store internals.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// Validation covers missing or malformed required input.
	Validation Kind = iota
	// NotFound covers absent users, matches or messages.
	NotFound
	// Unauthorized covers actors that are not participants of a match.
	Unauthorized
	// Conflict covers duplicate-resource situations.
	Conflict
	// Transient covers store or connectivity failures; the message is
	// logged server-side and never leaked to the client.
	Transient
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap keeps the underlying cause for logging while exposing msg to the
// client.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsNotFound(err error) bool {
	k, ok := KindOf(err)
	return ok && k == NotFound
}

func IsValidation(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Validation
}

func IsUnauthorized(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Unauthorized
}

// HTTPStatus maps an error to the status the handler should respond with.
// Unclassified errors are treated as transient server failures.
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage is the text safe to return to the caller. Transient and
// unclassified errors collapse to a generic message.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Transient {
		return e.Msg
	}
	return "Internal server error"
}
