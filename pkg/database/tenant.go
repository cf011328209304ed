package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dentora/dentora-backend/pkg/tenant"
)

type txKey struct{}

// tenantTx is the context value carrying the ambient transaction
// together with the tenant it was scoped to with SET LOCAL.
type tenantTx struct {
	tx       *sqlx.Tx
	tenantID string
}

// ErrTenantMismatch is returned when a nested WithTenant asks for a
// different tenant than the ambient transaction is scoped to.
var ErrTenantMismatch = errors.New("ambient transaction is scoped to a different tenant")

// WithTenant executes fn inside a transaction scoped to one tenant.
// This is the unit-of-work boundary for RLS-based pooled multi-tenancy.
//
// Usage in repositories:
//
//	tenantID, err := tenant.FromContext(ctx)
//	if err != nil { return err }
//	err = r.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
//	    return r.db.GetContext(ctx, &p, "SELECT * FROM patients WHERE id = $1", id)
//	})
//
// How it works:
//  1. Starts a transaction
//  2. Issues "SET LOCAL app.current_tenant_id = '<uuid>'" before any
//     other statement on that transaction
//  3. RLS policies filter rows: USING (tenant_id = current_setting('app.current_tenant_id', true)::uuid)
//     and reject wrong-tenant inserts via WITH CHECK
//  4. Commits on success, rolls back on any error from fn
//
// SET LOCAL is scoped to the transaction, so the setting can never
// outlive the unit of work or leak into a pooled connection reused by
// another tenant. If the SET itself fails the whole unit of work
// aborts; it never proceeds without tenant context.
//
// Nested calls reuse the ambient transaction: a service can wrap
// several repository calls in one WithTenant and each repository's own
// WithTenant becomes a no-op passthrough. A nested call for a
// different tenant fails with ErrTenantMismatch instead of running
// under the wrong SET LOCAL.
func (db *DB) WithTenant(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	if tenantID == "" {
		return tenant.ErrMissingTenantContext
	}

	// SET LOCAL does not support bind parameters, so the value is
	// interpolated. Parsing as a UUID first makes that safe.
	if _, err := uuid.Parse(tenantID); err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", tenantID, err)
	}

	// Already inside a tenant-scoped transaction; reuse it, but only
	// for the same tenant. The SET LOCAL on the ambient transaction
	// cannot be re-pointed mid-flight.
	if ambient, ok := ctx.Value(txKey{}).(tenantTx); ok {
		if ambient.tenantID != tenantID {
			return fmt.Errorf("%w: have %s, requested %s", ErrTenantMismatch, ambient.tenantID, tenantID)
		}
		return fn(ctx)
	}

	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL app.current_tenant_id = '%s'", tenantID)); err != nil {
			return fmt.Errorf("failed to set tenant context: %w", err)
		}

		return fn(context.WithValue(ctx, txKey{}, tenantTx{tx: tx, tenantID: tenantID}))
	})
}

// WithTenantFromContext resolves the tenant from ctx and runs fn under it.
// Convenience for repositories whose tenant always comes from the request.
func (db *DB) WithTenantFromContext(ctx context.Context, fn func(context.Context) error) error {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}
	return db.WithTenant(ctx, tenantID, fn)
}

// getTx extracts the ambient transaction from the context if present
func (db *DB) getTx(ctx context.Context) *sqlx.Tx {
	if ambient, ok := ctx.Value(txKey{}).(tenantTx); ok {
		return ambient.tx
	}
	return nil
}
