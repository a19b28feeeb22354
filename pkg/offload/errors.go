package offload

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrorCode classifies registry failures.
type ErrorCode int

const (
	// ErrOutOfMemory indicates a binding could not be allocated because the
	// token store reached its configured entry limit.
	ErrOutOfMemory ErrorCode = iota + 1

	// ErrUnsupportedOperation indicates a token was requested for an
	// operation kind other than duplicate-extents or resume-key.
	ErrUnsupportedOperation

	// ErrNotFound indicates a token has no live binding.
	ErrNotFound

	// ErrInternal indicates a consistency violation: a half-built context,
	// a corrupt store entry or a token bound to two different handles.
	ErrInternal
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrOutOfMemory:
		return "OutOfMemory"
	case ErrUnsupportedOperation:
		return "UnsupportedOperation"
	case ErrNotFound:
		return "NotFound"
	case ErrInternal:
		return "InternalError"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Error is a registry error carrying a code and, when relevant, the token
// that triggered it.
type Error struct {
	Code    ErrorCode
	Message string
	Token   Token
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if len(e.Token) > 0 {
		msg += fmt.Sprintf(" (token: %s)", hex.EncodeToString(e.Token))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an ErrorCode equal to e.Code or an *Error
// with the same code.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case ErrorCode:
		return e.Code == t
	case *Error:
		return e.Code == t.Code
	}
	return false
}

// Error lets an ErrorCode be used directly as an errors.Is target:
//
//	if errors.Is(err, offload.ErrNotFound) { ... }
func (c ErrorCode) Error() string {
	return c.String()
}

// CodeOf returns the ErrorCode carried by err, or 0 if err is not a
// registry error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c ErrorCode
	if errors.As(err, &c) {
		return c
	}
	return 0
}

func newError(code ErrorCode, msg string, token Token, cause error) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Token:   token.Clone(),
		Err:     cause,
	}
}
