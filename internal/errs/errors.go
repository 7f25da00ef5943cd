package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrStateConflict       = errors.New("state conflict")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPersistence         = errors.New("persistence error")
)

// Error carries a kind, the message shown to the caller and an optional cause.
type Error struct {
	kind  error
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil && e.kind == ErrPersistence {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Message is the caller-facing text; persistence causes are left out.
func (e *Error) Message() string { return e.msg }

// Is matches the error kind.
func (e *Error) Is(target error) bool { return target == e.kind }

func (e *Error) Unwrap() error { return e.cause }

// Kind returns the sentinel this error matches.
func (e *Error) Kind() error { return e.kind }

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Validation reports bad input shape or range.
func Validation(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

// NotFound reports a missing plan, wallet, user or withdrawal.
func NotFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

// StateConflict reports an operation that the current state forbids.
func StateConflict(format string, args ...interface{}) error {
	return newError(ErrStateConflict, format, args...)
}

// InsufficientBalance reports a debit larger than the wallet balance.
func InsufficientBalance(format string, args ...interface{}) error {
	return newError(ErrInsufficientBalance, format, args...)
}

// Persistence wraps a store failure. Already typed errors pass through.
func Persistence(err error, msg string) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{kind: ErrPersistence, msg: msg, cause: err}
}

// MessageOf returns the caller-facing message for any error.
func MessageOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Message()
	}
	return "Internal server error"
}
