// Package tenant carries the active clinic identifier through a request.
//
// The tenant ID is resolved once per request (from JWT claims, or from a
// freshly created tenant during clinic registration) and threaded through
// context.Context. It is applied to the database session by
// database.DB.WithTenant; this package only derives and transports it.
package tenant

import (
	"context"

	"github.com/dentora/dentora-backend/pkg/errors"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const tenantIDKey contextKey = "tenant_id"

// ErrMissingTenantContext is returned when an operation requires a tenant
// and none is present in the context.
var ErrMissingTenantContext = errors.ErrMissingTenantContext

// WithTenant returns a context carrying the given tenant ID.
// Called by the auth middleware after token validation, and by the
// clinic registration flow with the just-created tenant's ID.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// FromContext extracts the tenant ID from the context.
// Returns ErrMissingTenantContext if no tenant is present. An empty
// string never counts as a tenant.
func FromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(tenantIDKey).(string)
	if !ok || id == "" {
		return "", ErrMissingTenantContext
	}
	return id, nil
}

// MustFromContext extracts the tenant ID and panics if absent.
// Use only where a missing tenant is a programming error.
func MustFromContext(ctx context.Context) string {
	id, err := FromContext(ctx)
	if err != nil {
		panic("tenant ID not found in context")
	}
	return id
}
