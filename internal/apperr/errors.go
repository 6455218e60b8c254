// Package apperr defines the error kinds shared by the planning services,
// the HTTP handlers and the CLI, which map them to status codes and exit codes.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the planning services and their callers.
var (
	// ErrInvalidInput is returned for empty or unresolved selections and bad spacing or roll width.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced fabric type, plan or layout does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPersistence is returned when a storage transaction fails. The transaction has
	// already been rolled back when this error reaches the caller.
	ErrPersistence = errors.New("persistence failure")
)

// ConflictError reports orders that are already claimed by another plan.
type ConflictError struct {
	FabricTypeID   string
	LockedOrderNos []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("orders already planned for fabric type %s: %s",
		e.FabricTypeID, strings.Join(e.LockedOrderNos, ", "))
}

// Invalid wraps ErrInvalidInput with a formatted message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// AsConflict extracts a ConflictError from an error chain.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
