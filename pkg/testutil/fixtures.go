package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	clinicalrepo "github.com/dentora/dentora-backend/internal/clinical/repository"
	registryrepo "github.com/dentora/dentora-backend/internal/registry/repository"
	schedrepo "github.com/dentora/dentora-backend/internal/scheduling/repository"
	usersrepo "github.com/dentora/dentora-backend/internal/users/repository"
)

// DefaultTestPassword is the plaintext behind every fixture's hash
const DefaultTestPassword = "test-password-123"

// FixtureFactory creates test entities with sensible defaults. Each
// call bumps a sequence so emails and licenses stay unique within a
// test run.
type FixtureFactory struct {
	sequence int
	hash     string
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	hash, _ := bcrypt.GenerateFromPassword([]byte(DefaultTestPassword), bcrypt.MinCost)
	return &FixtureFactory{hash: string(hash)}
}

func (f *FixtureFactory) next() int {
	f.sequence++
	return f.sequence
}

// User builds a staff account for the given clinic
func (f *FixtureFactory) User(tenantID, role string) *usersrepo.User {
	n := f.next()
	return &usersrepo.User{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: f.hash,
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", n),
		Role:         role,
		Status:       "active",
	}
}

// Patient builds a patient record for the given clinic
func (f *FixtureFactory) Patient(tenantID string) *registryrepo.Patient {
	n := f.next()
	email := fmt.Sprintf("patient%d@example.com", n)
	dob := time.Date(1985, 6, 15, 0, 0, 0, 0, time.UTC)
	return &registryrepo.Patient{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		FirstName:   "Jane",
		LastName:    fmt.Sprintf("Doe%d", n),
		Email:       &email,
		DateOfBirth: &dob,
	}
}

// Doctor builds a doctor profile for the given clinic
func (f *FixtureFactory) Doctor(tenantID string) *registryrepo.Doctor {
	n := f.next()
	return &registryrepo.Doctor{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		FirstName:     "Greg",
		LastName:      fmt.Sprintf("House%d", n),
		Specialty:     "orthodontics",
		LicenseNumber: fmt.Sprintf("LIC-%05d", n),
		Active:        true,
	}
}

// Appointment builds an appointment for the given clinic. The
// appointment number is assigned by the repository on insert.
func (f *FixtureFactory) Appointment(tenantID, patientID, doctorID string) *schedrepo.Appointment {
	return &schedrepo.Appointment{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		PatientID:       patientID,
		DoctorID:        doctorID,
		ScheduledAt:     time.Now().Add(24 * time.Hour).Truncate(time.Minute),
		DurationMinutes: 30,
		Status:          schedrepo.StatusScheduled,
	}
}

// Prescription builds a prescription for the given clinic
func (f *FixtureFactory) Prescription(tenantID, patientID, doctorID string) *clinicalrepo.Prescription {
	return &clinicalrepo.Prescription{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		PatientID:   patientID,
		DoctorID:    doctorID,
		Medications: []byte(`[{"name":"Amoxicillin","dosage":"500mg","frequency":"3x daily","duration_days":7}]`),
	}
}

// CaseStudy builds a case study for the given clinic
func (f *FixtureFactory) CaseStudy(tenantID, patientID, doctorID string) *clinicalrepo.CaseStudy {
	n := f.next()
	return &clinicalrepo.CaseStudy{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		PatientID: patientID,
		DoctorID:  doctorID,
		Title:     fmt.Sprintf("Case %d", n),
		Status:    "open",
	}
}

// ToothEntry builds a dental chart entry for the given clinic
func (f *FixtureFactory) ToothEntry(tenantID, patientID string, tooth int) *clinicalrepo.ToothEntry {
	return &clinicalrepo.ToothEntry{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		PatientID:   patientID,
		ToothNumber: tooth,
		Condition:   "caries",
	}
}
