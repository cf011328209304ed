package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dentora/dentora-backend/internal/users/repository"
	"github.com/dentora/dentora-backend/internal/users/service"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/tenant"
	"github.com/dentora/dentora-backend/pkg/testutil"
)

const testTenantID = "a1b2c3d4-0000-4000-8000-000000000001"

func newTestService(t *testing.T) (*service.UserService, *testutil.MockDB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	svc := service.NewUserService(
		mockDB.DB,
		repository.NewUserRepository(mockDB.DB),
		repository.NewAuditRepository(mockDB.DB),
		nil,
		logger.New("test", "test"),
	)
	return svc, mockDB
}

func userRow(id, passwordHash string) *sqlmock.Rows {
	now := time.Now()
	return testutil.MockRows(
		"id", "tenant_id", "email", "password_hash",
		"first_name", "last_name", "role", "status",
		"created_at", "updated_at",
	).AddRow(id, testTenantID, "jane@clinic.test", passwordHash,
		"Jane", "Doe", "doctor", "active", now, now)
}

func TestChangePassword_AuditSharesUnitOfWork(t *testing.T) {
	svc, mockDB := newTestService(t)

	userID := "b2c3d4e5-0000-4000-8000-000000000002"
	hash, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)

	mockDB.ExpectTenantQuery(testTenantID,
		"SELECT id, tenant_id, email, password_hash, first_name, last_name, role, status, created_at, updated_at FROM users WHERE id = $1 AND deleted_at IS NULL",
		userRow(userID, string(hash)),
	)

	// The password change and its audit entry ride one transaction.
	mockDB.Mock.ExpectBegin()
	mockDB.ExpectSetTenant(testTenantID)
	mockDB.ExpectExec("UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO user_audit_log").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.Mock.ExpectCommit()

	ctx := tenant.WithTenant(context.Background(), testTenantID)
	require.NoError(t, svc.ChangePassword(ctx, userID, "old-password", "new-password"))
	mockDB.ExpectationsWereMet(t)
}

func TestChangePassword_FailedAuditRollsBackChange(t *testing.T) {
	svc, mockDB := newTestService(t)

	userID := "b2c3d4e5-0000-4000-8000-000000000002"
	hash, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)

	mockDB.ExpectTenantQuery(testTenantID,
		"SELECT id, tenant_id, email, password_hash, first_name, last_name, role, status, created_at, updated_at FROM users WHERE id = $1 AND deleted_at IS NULL",
		userRow(userID, string(hash)),
	)

	auditErr := errors.New("audit insert failed")

	mockDB.Mock.ExpectBegin()
	mockDB.ExpectSetTenant(testTenantID)
	mockDB.ExpectExec("UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO user_audit_log").
		WillReturnError(auditErr)
	mockDB.Mock.ExpectRollback()

	ctx := tenant.WithTenant(context.Background(), testTenantID)
	err = svc.ChangePassword(ctx, userID, "old-password", "new-password")
	assert.ErrorIs(t, err, auditErr)
	mockDB.ExpectationsWereMet(t)
}
