package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/tenant"
)

const testTenantID = "a1b2c3d4-0000-4000-8000-000000000001"

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewFromSqlx(sqlx.NewDb(raw, "postgres"), logger.New("test", "test")), mock
}

func expectSetTenant(mock sqlmock.Sqlmock, tenantID string) {
	stmt := fmt.Sprintf("SET LOCAL app.current_tenant_id = '%s'", tenantID)
	mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestWithTenant_SetsTenantBeforeQuery(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	expectSetTenant(mock, testTenantID)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM patients WHERE id = $1")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectCommit()

	var id string
	err := db.WithTenant(context.Background(), testTenantID, func(ctx context.Context) error {
		return db.GetContext(ctx, &id, "SELECT id FROM patients WHERE id = $1", "p1")
	})

	require.NoError(t, err)
	assert.Equal(t, "p1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenant_EmptyTenantID(t *testing.T) {
	db, mock := newMockDB(t)

	err := db.WithTenant(context.Background(), "", func(ctx context.Context) error {
		t.Fatal("fn must not run without a tenant")
		return nil
	})

	assert.ErrorIs(t, err, tenant.ErrMissingTenantContext)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenant_RejectsNonUUIDTenant(t *testing.T) {
	db, mock := newMockDB(t)

	err := db.WithTenant(context.Background(), "'; DROP TABLE patients; --", func(ctx context.Context) error {
		t.Fatal("fn must not run with a malformed tenant id")
		return nil
	})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenant_AbortsWhenSetFails(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	stmt := fmt.Sprintf("SET LOCAL app.current_tenant_id = '%s'", testTenantID)
	mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := db.WithTenant(context.Background(), testTenantID, func(ctx context.Context) error {
		t.Fatal("fn must not run when the tenant setting failed")
		return nil
	})

	assert.ErrorContains(t, err, "failed to set tenant context")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenant_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	expectSetTenant(mock, testTenantID)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO patients")).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := db.WithTenant(context.Background(), testTenantID, func(ctx context.Context) error {
		_, execErr := db.ExecContext(ctx, "INSERT INTO patients")
		return execErr
	})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenant_NestedCallReusesTransaction(t *testing.T) {
	db, mock := newMockDB(t)

	// One begin, one SET LOCAL, one commit; the inner WithTenant must
	// not open a second transaction.
	mock.ExpectBegin()
	expectSetTenant(mock, testTenantID)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO patients")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appointments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.WithTenant(context.Background(), testTenantID, func(ctx context.Context) error {
		if _, err := db.ExecContext(ctx, "INSERT INTO patients"); err != nil {
			return err
		}
		return db.WithTenant(ctx, testTenantID, func(ctx context.Context) error {
			_, err := db.ExecContext(ctx, "INSERT INTO appointments")
			return err
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenant_NestedCallDifferentTenantFails(t *testing.T) {
	db, mock := newMockDB(t)

	otherTenantID := "a1b2c3d4-0000-4000-8000-000000000002"

	// The inner call must abort before touching the transaction, and
	// the whole unit of work rolls back.
	mock.ExpectBegin()
	expectSetTenant(mock, testTenantID)
	mock.ExpectRollback()

	err := db.WithTenant(context.Background(), testTenantID, func(ctx context.Context) error {
		return db.WithTenant(ctx, otherTenantID, func(ctx context.Context) error {
			t.Fatal("fn must not run under another tenant's transaction")
			return nil
		})
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTenantMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenantFromContext(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	expectSetTenant(mock, testTenantID)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM patients")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	ctx := tenant.WithTenant(context.Background(), testTenantID)
	var count int
	err := db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		return db.GetContext(ctx, &count, "SELECT COUNT(*) FROM patients")
	})

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenantFromContext_NoTenant(t *testing.T) {
	db, mock := newMockDB(t)

	err := db.WithTenantFromContext(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn must not run without a tenant")
		return nil
	})

	assert.ErrorIs(t, err, tenant.ErrMissingTenantContext)
	assert.NoError(t, mock.ExpectationsWereMet())
}
