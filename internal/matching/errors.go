package matching

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no suggestion exists for an id.
	ErrNotFound = errors.New("match suggestion not found")

	// ErrAlreadyExists is returned when creating a suggestion whose id is
	// already taken.
	ErrAlreadyExists = errors.New("match suggestion already exists")
)

// ValidationError is a business-rule rejection, surfaced synchronously and
// never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
