package applications

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no application exists for an id.
	ErrNotFound = errors.New("application not found")

	// ErrAlreadyExists is returned when creating an application whose id
	// is already taken.
	ErrAlreadyExists = errors.New("application already exists")
)

// ValidationError is a business-rule rejection: missing identifiers,
// unknown actions, disallowed transitions, duplicate active applications.
// It is surfaced synchronously and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
