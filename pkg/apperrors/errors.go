package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrForbidden       = errors.New("forbidden")
	ErrAlreadySquashed = errors.New("already squashed")
)

// MutationError wraps a graph store failure for a specific mutation command.
// The cause is preserved verbatim so it can be recorded on the proposal.
type MutationError struct {
	Command string
	Cause   error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation failed: %v", e.Cause)
}

func (e *MutationError) Unwrap() error {
	return e.Cause
}

// NewMutationError creates a MutationError for the given command text.
func NewMutationError(command string, cause error) *MutationError {
	return &MutationError{Command: command, Cause: cause}
}
