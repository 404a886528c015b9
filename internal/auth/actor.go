package auth

import (
	"context"

	"github.com/google/uuid"
)

// Roles are opaque strings decided by the upstream identity provider. Only
// the dentist role narrows what the service returns; everything else is
// enforced by the access-control layer in front of this API.
const (
	RoleAdmin     = "admin"
	RoleDentist   = "dentist"
	RoleAssistant = "assistant"
)

// Actor is the authenticated caller as asserted by the auth middleware.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IDRef returns a pointer to the actor id, or nil for the zero actor, for
// nullable created_by/deleted_by columns.
func (a Actor) IDRef() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

type contextKey string

const actorKey contextKey = "actor"

// WithActor stores the actor in the request context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom retrieves the actor from context; the zero Actor means the
// request carried no identity.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey).(Actor); ok {
		return a
	}
	return Actor{}
}
