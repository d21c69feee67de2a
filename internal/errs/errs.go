// Package errs defines the error taxonomy shared by the engine and the
// transport layer. Every rejection the engine produces carries a Code so
// handlers can map it to a status without string matching.
package errs

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeForbidden    Code = "FORBIDDEN"
	CodeConflict     Code = "CONFLICT"
	CodeInvalidState Code = "INVALID_STATE"
	CodeInternal     Code = "INTERNAL"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes sentinel comparison work through errors.Is: two taxonomy errors
// match when code and message match.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func NotFound(msg string) error     { return New(CodeNotFound, msg) }
func Forbidden(msg string) error    { return New(CodeForbidden, msg) }
func Conflict(msg string) error     { return New(CodeConflict, msg) }
func InvalidState(msg string) error { return New(CodeInvalidState, msg) }
func Internal(msg string) error     { return New(CodeInternal, msg) }

// CodeOf extracts the taxonomy code, defaulting to INTERNAL for errors
// that did not originate in the engine.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
