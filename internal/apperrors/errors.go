package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates that the actor is not eligible to perform the action.
var ErrForbidden = errors.New("action not allowed")

// ErrConcurrencyConflict indicates that a write was based on a stale version of an aggregate.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrBusinessRule indicates a domain rule or state machine violation.
var ErrBusinessRule = errors.New("business rule violation")

// AppError is an infrastructure failure carrying an HTTP-ish status code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError wraps err with a code and a message safe to show to callers.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// IsExpected reports whether err is one of the typed business outcomes rather than an
// infrastructure failure.
func IsExpected(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, ErrBusinessRule)
}
