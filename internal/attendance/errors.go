package attendance

import (
	"errors"
	"fmt"
)

// Code classifies a failure for callers: validation errors are never
// retried, store errors are retryable.
type Code string

const (
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeNotFound    Code = "STUDENT_NOT_FOUND"
	CodeConflict    Code = "STUDENT_ALREADY_EXISTS"
	CodeUnavailable Code = "DATABASE_ERROR"
)

// Error carries a taxonomy code alongside the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a VALIDATION_ERROR.
func Validationf(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a STUDENT_ALREADY_EXISTS error.
func Conflictf(format string, args ...any) error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a STUDENT_NOT_FOUND error.
func NotFoundf(format string, args ...any) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a store connectivity/timeout failure as retryable.
func Unavailable(msg string, err error) error {
	return &Error{Code: CodeUnavailable, Message: msg, Err: err}
}

// CodeOf extracts the taxonomy code, defaulting to DATABASE_ERROR for
// untyped failures.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnavailable
}

// Retryable reports whether the caller may retry the operation.
func Retryable(err error) bool {
	return CodeOf(err) == CodeUnavailable
}
