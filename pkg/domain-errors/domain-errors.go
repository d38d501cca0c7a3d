// Package domainerrors carries failure kinds from the registry core out to
// the HTTP edge and back into clients. Handlers translate a Code to a status;
// callers compare codes, never messages.
package domainerrors

import (
	"errors"
	"fmt"
)

type Code string

// The first four are the registry's own failure kinds. Clients must be able
// to tell them apart, so they never share a status/code pair.
const (
	CodeUnauthorized    Code = "unauthorized"
	CodeNotFound        Code = "not_found"
	CodeInvalidArgument Code = "invalid_argument"
	CodeAlreadySigned   Code = "already_signed"

	CodeBadRequest         Code = "bad_request"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeConflict           Code = "conflict"
	CodePayloadTooLarge    Code = "payload_too_large"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is(err, &Error{Code: c})
// works through fmt wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches msg to err. A code already present in err wins over code, so
// a store's not_found stays not_found however many layers wrap it.
func Wrap(err error, code Code, msg string) error {
	if existing, ok := as(err); ok {
		code = existing.Code
	}
	return &Error{Code: code, Message: msg, Err: err}
}

func HasCode(err error, code Code) bool {
	e, ok := as(err)
	return ok && e.Code == code
}

// CodeOf returns the outermost code in err, or CodeInternal.
func CodeOf(err error) Code {
	if e, ok := as(err); ok {
		return e.Code
	}
	return CodeInternal
}

func as(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
