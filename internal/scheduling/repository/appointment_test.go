package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	registryrepo "github.com/dentora/dentora-backend/internal/registry/repository"
	"github.com/dentora/dentora-backend/internal/scheduling/repository"
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

// seedVisitRefs creates the patient and doctor an appointment needs.
func seedVisitRefs(t *testing.T, ctx context.Context, tenantID string) (patientID, doctorID string) {
	t.Helper()

	patient := suite.Fixtures.Patient(tenantID)
	require.NoError(t, registryrepo.NewPatientRepository(suite.DB).Create(ctx, patient))

	doctor := suite.Fixtures.Doctor(tenantID)
	require.NoError(t, registryrepo.NewDoctorRepository(suite.DB).Create(ctx, doctor))

	return patient.ID, doctor.ID
}

func TestAppointmentNumbersStartAtOnePerClinic(t *testing.T) {
	testutil.SkipIfShort(t)

	clinicA := suite.SetupTenant(t, context.Background(), "Clinic A")
	clinicB := suite.SetupTenant(t, context.Background(), "Clinic B")
	repo := repository.NewAppointmentRepository(suite.DB)

	ctxA := suite.TenantContext(clinicA)
	patientA, doctorA := seedVisitRefs(t, ctxA, clinicA.ID)

	first := suite.Fixtures.Appointment(clinicA.ID, patientA, doctorA)
	require.NoError(t, repo.Create(ctxA, first))
	assert.Equal(t, "APT-0001", first.AppointmentNumber)

	second := suite.Fixtures.Appointment(clinicA.ID, patientA, doctorA)
	second.ScheduledAt = first.ScheduledAt.Add(2 * time.Hour)
	require.NoError(t, repo.Create(ctxA, second))
	assert.Equal(t, "APT-0002", second.AppointmentNumber)

	// Clinic B's sequence is independent of clinic A's.
	ctxB := suite.TenantContext(clinicB)
	patientB, doctorB := seedVisitRefs(t, ctxB, clinicB.ID)

	other := suite.Fixtures.Appointment(clinicB.ID, patientB, doctorB)
	require.NoError(t, repo.Create(ctxB, other))
	assert.Equal(t, "APT-0001", other.AppointmentNumber)
}

func TestAppointmentInvisibleFromOtherClinic(t *testing.T) {
	testutil.SkipIfShort(t)

	clinicA := suite.SetupTenant(t, context.Background(), "Clinic A")
	clinicB := suite.SetupTenant(t, context.Background(), "Clinic B")
	repo := repository.NewAppointmentRepository(suite.DB)

	ctxA := suite.TenantContext(clinicA)
	patientID, doctorID := seedVisitRefs(t, ctxA, clinicA.ID)

	appointment := suite.Fixtures.Appointment(clinicA.ID, patientID, doctorID)
	require.NoError(t, repo.Create(ctxA, appointment))

	_, err := repo.GetByID(suite.TenantContext(clinicB), appointment.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	appointments, total, err := repo.List(suite.TenantContext(clinicB), repository.ListFilter{}, 1, 50)
	require.NoError(t, err)
	assert.Empty(t, appointments)
	assert.Zero(t, total)
}

func TestAppointmentCrossTenantPatientRefFails(t *testing.T) {
	testutil.SkipIfShort(t)

	clinicA := suite.SetupTenant(t, context.Background(), "Clinic A")
	clinicB := suite.SetupTenant(t, context.Background(), "Clinic B")
	repo := repository.NewAppointmentRepository(suite.DB)

	ctxA := suite.TenantContext(clinicA)
	patientA, _ := seedVisitRefs(t, ctxA, clinicA.ID)

	ctxB := suite.TenantContext(clinicB)
	_, doctorB := seedVisitRefs(t, ctxB, clinicB.ID)

	// Clinic B booking against clinic A's patient: the policy hides the
	// referenced row, so the insert fails rather than linking across
	// clinics.
	appointment := suite.Fixtures.Appointment(clinicB.ID, patientA, doctorB)
	err := repo.Create(ctxB, appointment)
	assert.Error(t, err)
}

func TestAppointmentListFilters(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewAppointmentRepository(suite.DB)

	patientID, doctorID := seedVisitRefs(t, ctx, clinic.ID)

	first := suite.Fixtures.Appointment(clinic.ID, patientID, doctorID)
	require.NoError(t, repo.Create(ctx, first))

	second := suite.Fixtures.Appointment(clinic.ID, patientID, doctorID)
	second.ScheduledAt = first.ScheduledAt.Add(3 * time.Hour)
	require.NoError(t, repo.Create(ctx, second))

	second.Status = repository.StatusCancelled
	now := time.Now()
	second.CancelledAt = &now
	require.NoError(t, repo.Update(ctx, second))

	scheduled, total, err := repo.List(ctx, repository.ListFilter{Status: repository.StatusScheduled}, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, scheduled, 1)
	assert.Equal(t, first.ID, scheduled[0].ID)

	from := first.ScheduledAt.Add(time.Hour)
	later, total, err := repo.List(ctx, repository.ListFilter{From: &from}, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, later, 1)
	assert.Equal(t, second.ID, later[0].ID)
}

func TestCountOverlapping(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewAppointmentRepository(suite.DB)

	patientID, doctorID := seedVisitRefs(t, ctx, clinic.ID)

	appointment := suite.Fixtures.Appointment(clinic.ID, patientID, doctorID)
	appointment.DurationMinutes = 60
	require.NoError(t, repo.Create(ctx, appointment))

	// Window starting halfway through the booked slot collides.
	count, err := repo.CountOverlapping(ctx, doctorID, appointment.ScheduledAt.Add(30*time.Minute), 30, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// Back to back is fine.
	count, err = repo.CountOverlapping(ctx, doctorID, appointment.ScheduledAt.Add(60*time.Minute), 30, "")
	require.NoError(t, err)
	assert.Zero(t, count)

	// The appointment never collides with itself when rescheduling.
	count, err = repo.CountOverlapping(ctx, doctorID, appointment.ScheduledAt, 60, appointment.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCounterRollsBackWithFailedInsert(t *testing.T) {
	testutil.SkipIfShort(t)

	clinic := suite.SetupTenant(t, context.Background(), "Sunrise Dental")
	ctx := suite.TenantContext(clinic)
	repo := repository.NewAppointmentRepository(suite.DB)

	patientID, doctorID := seedVisitRefs(t, ctx, clinic.ID)

	first := suite.Fixtures.Appointment(clinic.ID, patientID, doctorID)
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, "APT-0001", first.AppointmentNumber)

	// Bad status violates the check constraint; the claimed counter
	// value must roll back with the insert.
	bad := suite.Fixtures.Appointment(clinic.ID, patientID, doctorID)
	bad.ScheduledAt = first.ScheduledAt.Add(2 * time.Hour)
	bad.Status = "teleported"
	require.Error(t, repo.Create(ctx, bad))

	next := suite.Fixtures.Appointment(clinic.ID, patientID, doctorID)
	next.ScheduledAt = first.ScheduledAt.Add(4 * time.Hour)
	require.NoError(t, repo.Create(ctx, next))
	assert.Equal(t, "APT-0002", next.AppointmentNumber)
}
