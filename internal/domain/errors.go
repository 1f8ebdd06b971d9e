package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation error")
	ErrInconsistency    = errors.New("inconsistent state")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

// NotFound wraps ErrNotFound with the missing entity and id.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InconsistencyError records a companion write that failed after the
// primary mutation of an operation had already been applied.
type InconsistencyError struct {
	Op     string
	Entity string
	ID     string
	Err    error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s: %s %q left inconsistent: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *InconsistencyError) Is(target error) bool { return target == ErrInconsistency }

func (e *InconsistencyError) Unwrap() error { return e.Err }
