package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by a service wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	ErrStorage      = errors.New("storage failure")
	ErrGateway      = errors.New("gateway failure")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error carries a kind, a human-readable message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

// Error implements error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error     { return newf(ErrNotFound, format, args...) }
func InvalidState(format string, args ...any) error { return newf(ErrInvalidState, format, args...) }
func Validation(format string, args ...any) error   { return newf(ErrValidation, format, args...) }
func Conflict(format string, args ...any) error     { return newf(ErrConflict, format, args...) }
func Unauthorized(format string, args ...any) error { return newf(ErrUnauthorized, format, args...) }
func Forbidden(format string, args ...any) error    { return newf(ErrForbidden, format, args...) }

// Storage wraps a persistence failure.
func Storage(msg string, cause error) error {
	return &Error{Kind: ErrStorage, Message: msg, Cause: cause}
}

// Gateway wraps a failure of an outbound messaging provider.
func Gateway(msg string, cause error) error {
	return &Error{Kind: ErrGateway, Message: msg, Cause: cause}
}

// Message returns the user-facing message of err without its cause chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Kind != nil {
			return e.Kind.Error()
		}
	}
	return err.Error()
}
