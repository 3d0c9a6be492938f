package pipeline

import (
	"errors"
	"fmt"

	"github.com/SscSPs/procureflow/internal/apperrors"
)

// RequestKind separates state-changing commands from read-only queries.
type RequestKind int

const (
	KindCommand RequestKind = iota
	KindQuery
)

func (k RequestKind) String() string {
	if k == KindQuery {
		return "query"
	}
	return "command"
}

// Command is a request to run a registered operation.
type Command struct {
	Type           string
	Payload        any
	IdempotencyKey string
}

// ErrorKind classifies an unsuccessful Result.
type ErrorKind string

const (
	ErrorKindNone           ErrorKind = ""
	ErrorKindValidation     ErrorKind = "validation"
	ErrorKindBusinessRule   ErrorKind = "business_rule"
	ErrorKindForbidden      ErrorKind = "forbidden"
	ErrorKindConflict       ErrorKind = "conflict"
	ErrorKindNotFound       ErrorKind = "not_found"
	ErrorKindInfrastructure ErrorKind = "infrastructure"
)

const infrastructureMessage = "an internal error occurred"

// Result is the outcome of executing a Command. Expected failures are carried here rather
// than as Go errors.
type Result struct {
	Success bool      `json:"success"`
	Value   any       `json:"value,omitempty"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
	cause   error
}

// Success wraps a handler value.
func Success(value any) Result {
	return Result{Success: true, Value: value}
}

// Failure builds an unsuccessful result of the given kind.
func Failure(kind ErrorKind, message string) Result {
	return Result{Kind: kind, Error: message, cause: errors.New(message)}
}

// FromError classifies err by its sentinel. Unclassified errors become infrastructure
// failures with a generic message; the cause stays available through Err.
func FromError(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	res := Result{Error: err.Error(), cause: err}
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		res.Kind = ErrorKindValidation
	case errors.Is(err, apperrors.ErrNotFound):
		res.Kind = ErrorKindNotFound
	case errors.Is(err, apperrors.ErrForbidden):
		res.Kind = ErrorKindForbidden
	case errors.Is(err, apperrors.ErrConcurrencyConflict), errors.Is(err, apperrors.ErrDuplicate):
		res.Kind = ErrorKindConflict
	case errors.Is(err, apperrors.ErrBusinessRule):
		res.Kind = ErrorKindBusinessRule
	default:
		res.Kind = ErrorKindInfrastructure
		res.Error = infrastructureMessage
	}
	return res
}

// Err returns the underlying cause of a failed result, nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if r.cause != nil {
		return r.cause
	}
	return fmt.Errorf("%s: %s", r.Kind, r.Error)
}
