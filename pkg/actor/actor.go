// Package actor identifies the principal performing an action.
//
// It is used for audit logging and for the stamping discipline: an
// entity created "on behalf of" a clinic always inherits the acting
// principal's own tenant, never one supplied in request input.
package actor

import (
	"context"
	"fmt"
)

// Actor represents the authenticated principal performing an action.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID string `json:"id"`

	// Email is the actor's email address
	Email string `json:"email"`

	// FirstName is the actor's first name
	FirstName string `json:"first_name"`

	// LastName is the actor's last name
	LastName string `json:"last_name"`

	// TenantID is the clinic the actor belongs to. Immutable for the
	// lifetime of the principal; all rows the actor creates carry it.
	TenantID string `json:"tenant_id"`

	// Role is the actor's clinic role
	Role string `json:"role"`
}

// FullName returns the actor's full name
func (a *Actor) FullName() string {
	if a == nil {
		return ""
	}
	return a.FirstName + " " + a.LastName
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.FullName(), a.Email)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

const systemActorID = "00000000-0000-0000-0000-000000000000"

// SystemActor returns an Actor representing the system itself.
// Use for background jobs and system-initiated operations.
func SystemActor() *Actor {
	return &Actor{
		ID:        systemActorID,
		FirstName: "System",
		Email:     "system@dentora.local",
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == systemActorID
}
