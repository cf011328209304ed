package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentora/dentora-backend/internal/users/repository"
	apperrors "github.com/dentora/dentora-backend/pkg/errors"
	"github.com/dentora/dentora-backend/pkg/tenant"
	"github.com/dentora/dentora-backend/pkg/testutil"
)

const testTenantID = "a1b2c3d4-0000-4000-8000-000000000001"

func TestUserCreate_StampsTenant(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	mockDB.Mock.ExpectBegin()
	mockDB.ExpectSetTenant(testTenantID)
	mockDB.ExpectQuery("INSERT INTO users").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))
	mockDB.Mock.ExpectCommit()

	repo := repository.NewUserRepository(mockDB.DB)
	user := &repository.User{
		TenantID:     testTenantID,
		Email:        "jane@clinic.test",
		PasswordHash: "hash",
		FirstName:    "Jane",
		LastName:     "Doe",
		Role:         "doctor",
	}

	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "active", user.Status)
	mockDB.ExpectationsWereMet(t)
}

func TestUserCreate_RefusesUnstampedInsert(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := repository.NewUserRepository(mockDB.DB)
	user := &repository.User{Email: "jane@clinic.test"}

	err := repo.Create(context.Background(), user)
	assert.ErrorIs(t, err, apperrors.ErrMissingTenantContext)
	mockDB.ExpectationsWereMet(t)
}

func TestUserGetByID(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	rows := testutil.MockRows(
		"id", "tenant_id", "email", "password_hash", "first_name",
		"last_name", "role", "status", "created_at", "updated_at",
	).AddRow("user-1", testTenantID, "jane@clinic.test", "hash", "Jane", "Doe", "doctor", "active", now, now)

	mockDB.ExpectTenantQuery(testTenantID, "SELECT", rows)

	repo := repository.NewUserRepository(mockDB.DB)
	ctx := tenant.WithTenant(context.Background(), testTenantID)

	user, err := repo.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "jane@clinic.test", user.Email)
	assert.Equal(t, "Jane Doe", user.FullName())
	mockDB.ExpectationsWereMet(t)
}

func TestUserGetByID_RequiresTenantContext(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := repository.NewUserRepository(mockDB.DB)

	_, err := repo.GetByID(context.Background(), "user-1")
	assert.ErrorIs(t, err, tenant.ErrMissingTenantContext)
	mockDB.ExpectationsWereMet(t)
}

func TestUserGetByID_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectBegin()
	mockDB.ExpectSetTenant(testTenantID)
	mockDB.ExpectQuery("SELECT").WillReturnRows(testutil.MockRows("id"))
	mockDB.Mock.ExpectRollback()

	repo := repository.NewUserRepository(mockDB.DB)
	ctx := tenant.WithTenant(context.Background(), testTenantID)

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	mockDB.ExpectationsWereMet(t)
}

func TestUserUpdate_NothingMatched(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectBegin()
	mockDB.ExpectSetTenant(testTenantID)
	mockDB.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.Mock.ExpectRollback()

	repo := repository.NewUserRepository(mockDB.DB)
	ctx := tenant.WithTenant(context.Background(), testTenantID)

	err := repo.Update(ctx, &repository.User{ID: "ghost", Email: "x@y.test"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	mockDB.ExpectationsWereMet(t)
}
