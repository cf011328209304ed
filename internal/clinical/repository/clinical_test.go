package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentora/dentora-backend/internal/clinical/repository"
	registryrepo "github.com/dentora/dentora-backend/internal/registry/repository"
	apperrors "github.com/dentora/dentora-backend/pkg/errors"
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

func seedClinicalRefs(t *testing.T, ctx context.Context, tenantID string) (patientID, doctorID string) {
	t.Helper()

	patient := suite.Fixtures.Patient(tenantID)
	require.NoError(t, registryrepo.NewPatientRepository(suite.DB).Create(ctx, patient))

	doctor := suite.Fixtures.Doctor(tenantID)
	require.NoError(t, registryrepo.NewDoctorRepository(suite.DB).Create(ctx, doctor))

	return patient.ID, doctor.ID
}

func TestPrescriptionNumbering(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewPrescriptionRepository(suite.DB)

	patientID, doctorID := seedClinicalRefs(t, ctx, clinic.ID)

	first := suite.Fixtures.Prescription(clinic.ID, patientID, doctorID)
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, "RX-0001", first.PrescriptionNumber)

	second := suite.Fixtures.Prescription(clinic.ID, patientID, doctorID)
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, "RX-0002", second.PrescriptionNumber)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(first.Medications), string(got.Medications))
}

func TestPrescriptionNotesAmendment(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewPrescriptionRepository(suite.DB)

	patientID, doctorID := seedClinicalRefs(t, ctx, clinic.ID)

	rx := suite.Fixtures.Prescription(clinic.ID, patientID, doctorID)
	require.NoError(t, repo.Create(ctx, rx))

	notes := "take with food"
	require.NoError(t, repo.UpdateNotes(ctx, rx.ID, &notes))

	got, err := repo.GetByID(ctx, rx.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)
	// The medication lines are untouched by a notes amendment.
	assert.JSONEq(t, string(rx.Medications), string(got.Medications))

	err = repo.UpdateNotes(ctx, uuid.New().String(), &notes)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPrescriptionsIsolatedPerClinic(t *testing.T) {
	testutil.SkipIfShort(t)

	clinicA := suite.SetupTenant(t, context.Background(), "Clinic A")
	clinicB := suite.SetupTenant(t, context.Background(), "Clinic B")
	repo := repository.NewPrescriptionRepository(suite.DB)

	ctxA := suite.TenantContext(clinicA)
	patientID, doctorID := seedClinicalRefs(t, ctxA, clinicA.ID)

	prescription := suite.Fixtures.Prescription(clinicA.ID, patientID, doctorID)
	require.NoError(t, repo.Create(ctxA, prescription))

	_, err := repo.GetByID(suite.TenantContext(clinicB), prescription.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCaseStudyLifecycle(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewCaseStudyRepository(suite.DB)

	patientID, doctorID := seedClinicalRefs(t, ctx, clinic.ID)

	cs := suite.Fixtures.CaseStudy(clinic.ID, patientID, doctorID)
	require.NoError(t, repo.Create(ctx, cs))
	assert.Equal(t, "CS-0001", cs.CaseNumber)
	assert.Equal(t, "open", cs.Status)

	listed, total, err := repo.ListForPatient(ctx, patientID, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, listed, 1)
	assert.Equal(t, cs.ID, listed[0].ID)
}

func TestDentalChartUpsertReplacesToothState(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewDentalChartRepository(suite.DB)

	patientID, _ := seedClinicalRefs(t, ctx, clinic.ID)

	entry := suite.Fixtures.ToothEntry(clinic.ID, patientID, 16)
	entry.Condition = "caries"
	require.NoError(t, repo.Upsert(ctx, entry))
	firstID := entry.ID

	update := suite.Fixtures.ToothEntry(clinic.ID, patientID, 16)
	update.Condition = "filled"
	require.NoError(t, repo.Upsert(ctx, update))

	// Same row: the second write replaced the first, nothing new added.
	assert.Equal(t, firstID, update.ID)

	chart, err := repo.GetChart(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, chart, 1)
	assert.Equal(t, "filled", chart[0].Condition)
	assert.Equal(t, 16, chart[0].ToothNumber)
}

func TestDentalChartOrderedByTooth(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewDentalChartRepository(suite.DB)

	patientID, _ := seedClinicalRefs(t, ctx, clinic.ID)

	for _, tooth := range []int{48, 11, 26} {
		entry := suite.Fixtures.ToothEntry(clinic.ID, patientID, tooth)
		require.NoError(t, repo.Upsert(ctx, entry))
	}

	chart, err := repo.GetChart(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, chart, 3)
	assert.Equal(t, 11, chart[0].ToothNumber)
	assert.Equal(t, 26, chart[1].ToothNumber)
	assert.Equal(t, 48, chart[2].ToothNumber)
}

func TestDentalChartRejectsInvalidToothNumbers(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewDentalChartRepository(suite.DB)

	patientID, _ := seedClinicalRefs(t, ctx, clinic.ID)

	for _, tooth := range []int{0, 9, 10, 19, 29, 50, 87} {
		entry := suite.Fixtures.ToothEntry(clinic.ID, patientID, tooth)
		err := repo.Upsert(ctx, entry)
		assert.Error(t, err, "tooth %d", tooth)
	}
}

func TestDentalChartDeleteEntry(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewDentalChartRepository(suite.DB)

	patientID, _ := seedClinicalRefs(t, ctx, clinic.ID)

	entry := suite.Fixtures.ToothEntry(clinic.ID, patientID, 31)
	require.NoError(t, repo.Upsert(ctx, entry))

	require.NoError(t, repo.DeleteEntry(ctx, patientID, 31))

	err := repo.DeleteEntry(ctx, patientID, 31)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestValidToothNumber(t *testing.T) {
	valid := []int{11, 18, 21, 28, 31, 38, 41, 48}
	for _, n := range valid {
		assert.True(t, repository.ValidToothNumber(n), "tooth %d", n)
	}

	invalid := []int{0, 9, 10, 19, 20, 29, 40, 49, 50, 100, -11}
	for _, n := range invalid {
		assert.False(t, repository.ValidToothNumber(n), "tooth %d", n)
	}
}
