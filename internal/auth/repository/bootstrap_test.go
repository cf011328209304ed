package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentora/dentora-backend/internal/auth/repository"
	usersrepo "github.com/dentora/dentora-backend/internal/users/repository"
	apperrors "github.com/dentora/dentora-backend/pkg/errors"
	"github.com/dentora/dentora-backend/pkg/tenant"
	"github.com/dentora/dentora-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to set up integration suite: %v", err)
	}

	code := m.Run()
	suite.Cleanup(ctx)
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

// removeClinic tears down rows created by the bootstrap tests, which
// bypass the suite's tenant manager.
func removeClinic(t *testing.T, clinicID string) {
	t.Cleanup(func() {
		ctx := context.Background()
		tx, err := suite.RawDB.BeginTxx(ctx, nil)
		if err != nil {
			t.Logf("warning: bootstrap cleanup failed: %v", err)
			return
		}
		defer tx.Rollback()
		tx.MustExec("SET LOCAL app.current_tenant_id = '" + clinicID + "'")
		tx.MustExec("DELETE FROM users")
		tx.MustExec("DELETE FROM public.login_directory WHERE tenant_id = $1", clinicID)
		tx.MustExec("DELETE FROM public.tenants WHERE id = $1", clinicID)
		if err := tx.Commit(); err != nil {
			t.Logf("warning: bootstrap cleanup failed: %v", err)
		}
	})
}

func TestClinicBootstrapCreatesEverythingTogether(t *testing.T) {
	testutil.SkipIfShort(t)

	tenantRepo := repository.NewTenantRepository(suite.DB)
	directoryRepo := repository.NewDirectoryRepository(suite.DB)
	userRepo := usersrepo.NewUserRepository(suite.DB)

	clinicID := uuid.New().String()
	removeClinic(t, clinicID)

	admin := suite.Fixtures.User(clinicID, "admin")

	err := suite.DB.WithTenant(context.Background(), clinicID, func(ctx context.Context) error {
		if err := tenantRepo.Create(ctx, &repository.Tenant{ID: clinicID, Name: "Bootstrap Dental"}); err != nil {
			return err
		}
		if err := userRepo.Create(ctx, admin); err != nil {
			return err
		}
		return directoryRepo.Insert(ctx, &repository.DirectoryEntry{
			Email:    admin.Email,
			UserID:   admin.ID,
			TenantID: clinicID,
		})
	})
	require.NoError(t, err)

	clinic, err := tenantRepo.GetByID(context.Background(), clinicID)
	require.NoError(t, err)
	assert.True(t, clinic.Active)

	entry, err := directoryRepo.GetByEmail(context.Background(), admin.Email)
	require.NoError(t, err)
	assert.Equal(t, clinicID, entry.TenantID)

	got, err := userRepo.GetByID(tenant.WithTenant(context.Background(), clinicID), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, clinicID, got.TenantID)
	assert.Equal(t, "admin", got.Role)
}

func TestClinicBootstrapDuplicateEmailKeepsOriginalMapping(t *testing.T) {
	testutil.SkipIfShort(t)

	tenantRepo := repository.NewTenantRepository(suite.DB)
	directoryRepo := repository.NewDirectoryRepository(suite.DB)
	userRepo := usersrepo.NewUserRepository(suite.DB)

	bootstrap := func(clinicID, clinicName string, admin *usersrepo.User) error {
		return suite.DB.WithTenant(context.Background(), clinicID, func(ctx context.Context) error {
			if err := tenantRepo.Create(ctx, &repository.Tenant{ID: clinicID, Name: clinicName}); err != nil {
				return err
			}
			if err := userRepo.Create(ctx, admin); err != nil {
				return err
			}
			return directoryRepo.Insert(ctx, &repository.DirectoryEntry{
				Email:    admin.Email,
				UserID:   admin.ID,
				TenantID: clinicID,
			})
		})
	}

	clinicA := uuid.New().String()
	removeClinic(t, clinicA)
	adminA := suite.Fixtures.User(clinicA, "admin")
	require.NoError(t, bootstrap(clinicA, "First Dental", adminA))

	// A second clinic registering the same email must fail whole, not
	// steal the existing directory mapping.
	clinicB := uuid.New().String()
	removeClinic(t, clinicB)
	adminB := suite.Fixtures.User(clinicB, "admin")
	adminB.Email = adminA.Email

	err := bootstrap(clinicB, "Second Dental", adminB)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	entry, err := directoryRepo.GetByEmail(context.Background(), adminA.Email)
	require.NoError(t, err)
	assert.Equal(t, clinicA, entry.TenantID)
	assert.Equal(t, adminA.ID, entry.UserID)

	// Clinic B's transaction left nothing behind.
	_, err = tenantRepo.GetByID(context.Background(), clinicB)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClinicBootstrapRollsBackTogether(t *testing.T) {
	testutil.SkipIfShort(t)

	tenantRepo := repository.NewTenantRepository(suite.DB)
	_ = repository.NewDirectoryRepository(suite.DB)
	userRepo := usersrepo.NewUserRepository(suite.DB)

	clinicID := uuid.New().String()
	removeClinic(t, clinicID)

	admin := suite.Fixtures.User(clinicID, "admin")
	admin.Email = "not-an-email" // fails the email format check

	err := suite.DB.WithTenant(context.Background(), clinicID, func(ctx context.Context) error {
		if err := tenantRepo.Create(ctx, &repository.Tenant{ID: clinicID, Name: "Doomed Dental"}); err != nil {
			return err
		}
		return userRepo.Create(ctx, admin)
	})
	require.Error(t, err)

	// The tenant row from the same transaction is gone too.
	_, err = tenantRepo.GetByID(context.Background(), clinicID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSessionRevocation(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Session Dental")
	sessionRepo := repository.NewSessionRepository(suite.DB)

	userID := uuid.New().String()
	expiresAt := time.Now().Add(24 * time.Hour)
	session, err := sessionRepo.CreateWithID(context.Background(), uuid.New().String(), userID, clinic.ID, "refresh-token-1", expiresAt, "test-agent", "127.0.0.1")
	require.NoError(t, err)

	got, err := sessionRepo.GetByRefreshToken(context.Background(), "refresh-token-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Nil(t, got.RevokedAt)

	require.NoError(t, sessionRepo.RevokeByRefreshToken(context.Background(), "refresh-token-1"))

	got, err = sessionRepo.GetByRefreshToken(context.Background(), "refresh-token-1")
	require.NoError(t, err)
	assert.NotNil(t, got.RevokedAt)
}
