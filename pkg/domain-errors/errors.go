// Package domainerrors carries a stable, transport-neutral code on errors that
// cross a service boundary. Handlers translate codes into HTTP statuses; stores
// keep returning pkg/platform/sentinel errors.
package domainerrors

import (
	"errors"
	"fmt"

	"licensecheck/pkg/platform/sentinel"
)

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnavailable  Code = "unavailable"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err. A nil err stays nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the outermost code on err. Bare sentinel errors map to
// their natural code; anything else is internal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, sentinel.ErrConflict):
		return CodeConflict
	case errors.Is(err, sentinel.ErrUnavailable):
		return CodeUnavailable
	case errors.Is(err, sentinel.ErrInvalidInput):
		return CodeBadRequest
	}
	return CodeInternal
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Is is an alias of HasCode that reads better in assertions.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
