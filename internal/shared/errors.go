package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or duplicate-request conflict.
	ErrConflict = errors.New("conflict")
	// ErrPermissionDenied indicates the backing store or policy layer rejected the caller.
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError reports a rejected input before any write happened.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation: %s=%v: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field string, value any, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// PartialFailureError reports a multi-step operation that stopped midway.
// Completed lists the steps that committed before the failure so callers can
// compensate manually or automatically.
type PartialFailureError struct {
	Op        string
	Completed []string
	Cause     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: partial failure after [%s]: %v", e.Op, strings.Join(e.Completed, ", "), e.Cause)
}

func (e *PartialFailureError) Unwrap() error { return e.Cause }

// TransientError marks a store/network failure. Reads are safe to retry;
// creates are not without a dedup key.
type TransientError struct {
	Op    string
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient store error: %v", e.Op, e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// IsTransient reports whether err carries a TransientError anywhere in its chain.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// UserSafeMessage maps an error to text suitable for API consumers without
// leaking store internals.
func UserSafeMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return pf.Error()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "record not found"
	case errors.Is(err, ErrPermissionDenied):
		return "you do not have permission to perform this action"
	case errors.Is(err, ErrConflict):
		return "the request conflicts with an existing record"
	case errors.Is(err, ErrIdempotencyConflict):
		return "this request was already processed"
	default:
		return "an unexpected error occurred"
	}
}
