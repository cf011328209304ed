package service

import (
	"context"
	"time"

	"github.com/dentora/dentora-backend/internal/registry/events"
	"github.com/dentora/dentora-backend/internal/registry/repository"
	"github.com/dentora/dentora-backend/pkg/errors"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/tenant"
)

// PatientService handles patient business logic
type PatientService struct {
	patientRepo *repository.PatientRepository
	publisher   *events.RegistryEventPublisher
	logger      *logger.Logger
}

// NewPatientService creates a new patient service
func NewPatientService(patientRepo *repository.PatientRepository, publisher *events.RegistryEventPublisher, log *logger.Logger) *PatientService {
	return &PatientService{
		patientRepo: patientRepo,
		publisher:   publisher,
		logger:      log,
	}
}

// CreatePatientRequest represents a create patient request
type CreatePatientRequest struct {
	FirstName    string  `json:"first_name" validate:"required"`
	LastName     string  `json:"last_name" validate:"required"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	DateOfBirth  *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender       *string `json:"gender" validate:"omitempty,oneof=male female other"`
	Address      *string `json:"address"`
	MedicalNotes *string `json:"medical_notes"`
}

// UpdatePatientRequest represents an update patient request
type UpdatePatientRequest struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	DateOfBirth  *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender       *string `json:"gender" validate:"omitempty,oneof=male female other"`
	Address      *string `json:"address"`
	MedicalNotes *string `json:"medical_notes"`
}

// Create creates a new patient record. The tenant id comes from the
// request context, never from the payload.
func (s *PatientService) Create(ctx context.Context, req *CreatePatientRequest) (*repository.Patient, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	patient := &repository.Patient{
		TenantID:     tenantID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		DateOfBirth:  dob,
		Gender:       req.Gender,
		Address:      req.Address,
		MedicalNotes: req.MedicalNotes,
	}

	if err := s.patientRepo.Create(ctx, patient); err != nil {
		return nil, err
	}

	s.publisher.PublishPatientCreated(ctx, patient)

	return patient, nil
}

// GetByID gets a patient by ID
func (s *PatientService) GetByID(ctx context.Context, id string) (*repository.Patient, error) {
	return s.patientRepo.GetByID(ctx, id)
}

// List lists patients with optional name search
func (s *PatientService) List(ctx context.Context, search string, page, perPage int) ([]*repository.Patient, int64, error) {
	return s.patientRepo.List(ctx, search, page, perPage)
}

// Update updates a patient record
func (s *PatientService) Update(ctx context.Context, id string, req *UpdatePatientRequest) (*repository.Patient, error) {
	patient, err := s.patientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		patient.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		patient.LastName = *req.LastName
	}
	if req.Email != nil {
		patient.Email = req.Email
	}
	if req.Phone != nil {
		patient.Phone = req.Phone
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate(req.DateOfBirth)
		if err != nil {
			return nil, err
		}
		patient.DateOfBirth = dob
	}
	if req.Gender != nil {
		patient.Gender = req.Gender
	}
	if req.Address != nil {
		patient.Address = req.Address
	}
	if req.MedicalNotes != nil {
		patient.MedicalNotes = req.MedicalNotes
	}

	if err := s.patientRepo.Update(ctx, patient); err != nil {
		return nil, err
	}

	s.publisher.PublishPatientUpdated(ctx, patient)

	return patient, nil
}

// Delete soft-deletes a patient record
func (s *PatientService) Delete(ctx context.Context, id string) error {
	return s.patientRepo.SoftDelete(ctx, id)
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, errors.BadRequest("invalid date, expected YYYY-MM-DD")
	}
	return &t, nil
}
