package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewMutationError(`CREATE (n:Person {id: "alice"})`, cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "mutation failed: connection refused", err.Error())

	wrapped := fmt.Errorf("apply: %w", err)
	var mutErr *MutationError
	require.True(t, errors.As(wrapped, &mutErr))
	assert.Equal(t, `CREATE (n:Person {id: "alice"})`, mutErr.Command)
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrInvalidState, ErrForbidden, ErrAlreadySquashed}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, errors.Is(a, b))
			}
		}
	}
}
