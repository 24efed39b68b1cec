// Package apperr defines the platform-independent error taxonomy every
// component in this module surfaces instead of ad-hoc error strings.
package apperr

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "notFound"
	KindConflict    Kind = "conflict"
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rateLimited"
	KindExternal    Kind = "external"
	KindInternal    Kind = "internal"
)

// Error is the typed error every fallible operation in this module returns.
// The HTTP layer maps Kind to a status code and Code to the stable string
// in the unified error response body.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	Details    map[string]any
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error  { return newError(KindValidation, code, message) }
func NotFound(code, message string) *Error    { return newError(KindNotFound, code, message) }
func Conflict(code, message string) *Error    { return newError(KindConflict, code, message) }
func Auth(code, message string) *Error        { return newError(KindAuth, code, message) }
func External(code, message string) *Error    { return newError(KindExternal, code, message) }
func Internal(code, message string) *Error    { return newError(KindInternal, code, message) }

func RateLimited(code, message string, retryAfter time.Duration) *Error {
	e := newError(KindRateLimited, code, message)
	e.RetryAfter = retryAfter
	return e
}

// As reports whether err is an *Error and returns it.
func As(err error) (*Error, bool) {
	ae, ok := err.(*Error)
	return ae, ok
}
