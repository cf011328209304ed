package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentora/dentora-backend/internal/registry/repository"
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

func TestPatientCreateAndGet(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewPatientRepository(suite.DB)

	patient := suite.Fixtures.Patient(clinic.ID)
	require.NoError(t, repo.Create(ctx, patient))
	require.NotEmpty(t, patient.ID)
	assert.False(t, patient.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.FirstName, got.FirstName)
	assert.Equal(t, clinic.ID, got.TenantID)
}

func TestPatientInvisibleFromOtherClinic(t *testing.T) {
	testutil.SkipIfShort(t)

	clinicA := suite.SetupTenant(t, context.Background(), "Clinic A")
	clinicB := suite.SetupTenant(t, context.Background(), "Clinic B")
	repo := repository.NewPatientRepository(suite.DB)

	patient := suite.Fixtures.Patient(clinicA.ID)
	require.NoError(t, repo.Create(suite.TenantContext(clinicA), patient))

	// From clinic B the row does not exist, not "forbidden".
	_, err := repo.GetByID(suite.TenantContext(clinicB), patient.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	patients, total, err := repo.List(suite.TenantContext(clinicB), "", 1, 50)
	require.NoError(t, err)
	assert.Empty(t, patients)
	assert.Zero(t, total)
}

func TestPatientUpdateCrossTenantIsNotFound(t *testing.T) {
	testutil.SkipIfShort(t)

	clinicA := suite.SetupTenant(t, context.Background(), "Clinic A")
	clinicB := suite.SetupTenant(t, context.Background(), "Clinic B")
	repo := repository.NewPatientRepository(suite.DB)

	patient := suite.Fixtures.Patient(clinicA.ID)
	require.NoError(t, repo.Create(suite.TenantContext(clinicA), patient))

	patient.FirstName = "Hijacked"
	err := repo.Update(suite.TenantContext(clinicB), patient)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = repo.SoftDelete(suite.TenantContext(clinicB), patient.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Still intact for its own clinic.
	got, err := repo.GetByID(suite.TenantContext(clinicA), patient.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "Hijacked", got.FirstName)
}

func TestPatientCreateWithoutTenantStamp(t *testing.T) {
	testutil.SkipIfShort(t)

	repo := repository.NewPatientRepository(suite.DB)

	patient := suite.Fixtures.Patient("")
	err := repo.Create(context.Background(), patient)
	assert.ErrorIs(t, err, apperrors.ErrMissingTenantContext)
}

func TestPatientReadWithoutTenantContext(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	repo := repository.NewPatientRepository(suite.DB)

	patient := suite.Fixtures.Patient(clinic.ID)
	require.NoError(t, repo.Create(suite.TenantContext(clinic), patient))

	_, err := repo.GetByID(context.Background(), patient.ID)
	assert.ErrorIs(t, err, tenant.ErrMissingTenantContext)
}

func TestSessionWithoutSettingSeesNoRows(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	repo := repository.NewPatientRepository(suite.DB)

	patient := suite.Fixtures.Patient(clinic.ID)
	require.NoError(t, repo.Create(suite.TenantContext(clinic), patient))

	// Raw connection, no SET LOCAL: the policy's presence check hides
	// every row even from the table owner.
	var count int64
	require.NoError(t, suite.RawDB.GetContext(context.Background(), &count, "SELECT COUNT(*) FROM patients"))
	assert.Zero(t, count)
}

func TestPatientListSearch(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewPatientRepository(suite.DB)

	ana := suite.Fixtures.Patient(clinic.ID)
	ana.FirstName = "Ana"
	ana.LastName = "Martinez"
	require.NoError(t, repo.Create(ctx, ana))

	bruno := suite.Fixtures.Patient(clinic.ID)
	bruno.FirstName = "Bruno"
	bruno.LastName = "Silva"
	require.NoError(t, repo.Create(ctx, bruno))

	patients, total, err := repo.List(ctx, "mart", 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, patients, 1)
	assert.Equal(t, "Ana", patients[0].FirstName)
}

func TestPatientSoftDeleteHidesRecord(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewPatientRepository(suite.DB)

	patient := suite.Fixtures.Patient(clinic.ID)
	require.NoError(t, repo.Create(ctx, patient))

	require.NoError(t, repo.SoftDelete(ctx, patient.ID))

	_, err := repo.GetByID(ctx, patient.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = repo.SoftDelete(ctx, patient.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDoctorLicenseUniquePerClinic(t *testing.T) {
	testutil.SkipIfShort(t)

	clinicA := suite.SetupTenant(t, context.Background(), "Clinic A")
	clinicB := suite.SetupTenant(t, context.Background(), "Clinic B")
	repo := repository.NewDoctorRepository(suite.DB)

	doctor := suite.Fixtures.Doctor(clinicA.ID)
	require.NoError(t, repo.Create(suite.TenantContext(clinicA), doctor))

	// Same license in the same clinic conflicts.
	dup := suite.Fixtures.Doctor(clinicA.ID)
	dup.LicenseNumber = doctor.LicenseNumber
	err := repo.Create(suite.TenantContext(clinicA), dup)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// Another clinic may register the same license number.
	other := suite.Fixtures.Doctor(clinicB.ID)
	other.LicenseNumber = doctor.LicenseNumber
	assert.NoError(t, repo.Create(suite.TenantContext(clinicB), other))
}
