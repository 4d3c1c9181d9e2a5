// Package auth carries resolved actor identity through operation contexts.
// Credential resolution (API keys, sessions) happens upstream; the core only
// ever sees an already-resolved (id, role) pair and re-validates the role
// level on every operation.
package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/graphoni/graphoni-engine/pkg/apperrors"
	"github.com/graphoni/graphoni-engine/pkg/models"
)

// Actor is a resolved identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role models.Role
}

// actorKey is the context key for storing the actor.
type actorKey struct{}

// WithActor returns a new context with the actor attached.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom retrieves the actor from the context.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// RequireRole returns the context's actor if it meets the required role
// tier, or ErrForbidden. Missing actors are treated as forbidden, not as a
// separate failure mode.
func RequireRole(ctx context.Context, required models.Role) (Actor, error) {
	a, ok := ActorFrom(ctx)
	if !ok {
		return Actor{}, fmt.Errorf("no actor in context: %w", apperrors.ErrForbidden)
	}
	if !a.Role.AtLeast(required) {
		return Actor{}, fmt.Errorf("role %s requires %s: %w", a.Role, required, apperrors.ErrForbidden)
	}
	return a, nil
}
