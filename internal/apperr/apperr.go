// Package apperr defines the error taxonomy shared by every module.
// All four kinds are returned to the boundary as structured results,
// never as transport-level failures.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error for the RPC boundary.
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindConflict      Kind = "CONFLICT"
	KindAuthorization Kind = "AUTHORIZATION"
	KindNotFound      Kind = "NOT_FOUND"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	wrapped error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.wrapped }

// Validation reports malformed or out-of-bounds input. Never retried.
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a lost race or an exhausted quantity. The caller may
// retry after refreshing state.
func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Authorization reports an invalid session or a missing permission.
// The message stays generic on purpose.
func Authorization(message string) error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NotFound reports an unresolvable entity id.
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause while keeping the classification.
func Wrap(err error, kind Kind, message string) error {
	return &Error{Kind: kind, Message: message, wrapped: err}
}

// KindOf extracts the classification from an error chain. Unclassified
// errors report an empty Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsConflict reports whether err is classified as a conflict.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsValidation reports whether err is classified as a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is classified as not-found.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsAuthorization reports whether err is classified as an authorization failure.
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }
