package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dentora/dentora-backend/pkg/tenant"
)

// TestTenant represents a clinic created for testing
type TestTenant struct {
	ID   string
	Name string
}

// TenantManager registers test clinics in public.tenants. All clinics
// share the same tables; isolation comes from the row-level security
// policies, which is exactly what the tests exercise.
type TenantManager struct {
	db      *sqlx.DB
	tenants []TestTenant
	mu      sync.Mutex
}

// NewTenantManager creates a new tenant manager for tests
func NewTenantManager(db *sqlx.DB) *TenantManager {
	return &TenantManager{
		db:      db,
		tenants: make([]TestTenant, 0),
	}
}

// CreateTenant registers a new clinic for testing.
//
// Usage:
//
//	tm := testutil.NewTenantManager(db)
//	clinic, _ := tm.CreateTenant(ctx, "Test Clinic")
//	ctx = testutil.WithTestTenant(ctx, clinic)
//
//	// Repository operations now run under this clinic's policy
//	patient, err := patientRepo.GetByID(ctx, patientID)
func (tm *TenantManager) CreateTenant(ctx context.Context, name string) (*TestTenant, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	id := uuid.New().String()

	_, err := tm.db.ExecContext(ctx, `
		INSERT INTO public.tenants (id, name, active)
		VALUES ($1, $2, true)
	`, id, name)
	if err != nil {
		return nil, fmt.Errorf("failed to register tenant: %w", err)
	}

	t := TestTenant{ID: id, Name: name}
	tm.tenants = append(tm.tenants, t)
	return &t, nil
}

// DropTenant removes a clinic and all its rows. The deletes run with
// the clinic's own tenant setting since the scoped tables are policy
// guarded.
func (tm *TenantManager) DropTenant(ctx context.Context, t *TestTenant) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tx, err := tm.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL app.current_tenant_id = '%s'", t.ID)); err != nil {
		return err
	}

	tables := []string{
		"dental_chart_entries", "case_studies", "prescriptions",
		"appointments", "tenant_counters", "doctors", "patients",
		"user_audit_log", "users",
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, query := range []string{
		"DELETE FROM public.sessions WHERE tenant_id = $1",
		"DELETE FROM public.login_directory WHERE tenant_id = $1",
		"DELETE FROM public.tenants WHERE id = $1",
	} {
		if _, err := tx.ExecContext(ctx, query, t.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for i, existing := range tm.tenants {
		if existing.ID == t.ID {
			tm.tenants = append(tm.tenants[:i], tm.tenants[i+1:]...)
			break
		}
	}
	return nil
}

// Cleanup drops every clinic created by this manager
func (tm *TenantManager) Cleanup(ctx context.Context) error {
	tm.mu.Lock()
	remaining := make([]TestTenant, len(tm.tenants))
	copy(remaining, tm.tenants)
	tm.mu.Unlock()

	for i := range remaining {
		if err := tm.DropTenant(ctx, &remaining[i]); err != nil {
			return err
		}
	}
	return nil
}

// WithTestTenant returns a context carrying the test clinic's id
func WithTestTenant(ctx context.Context, t *TestTenant) context.Context {
	return tenant.WithTenant(ctx, t.ID)
}
