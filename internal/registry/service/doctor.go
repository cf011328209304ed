package service

import (
	"context"

	"github.com/dentora/dentora-backend/internal/registry/events"
	"github.com/dentora/dentora-backend/internal/registry/repository"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/tenant"
)

// DoctorService handles doctor business logic
type DoctorService struct {
	doctorRepo *repository.DoctorRepository
	publisher  *events.RegistryEventPublisher
	logger     *logger.Logger
}

// NewDoctorService creates a new doctor service
func NewDoctorService(doctorRepo *repository.DoctorRepository, publisher *events.RegistryEventPublisher, log *logger.Logger) *DoctorService {
	return &DoctorService{
		doctorRepo: doctorRepo,
		publisher:  publisher,
		logger:     log,
	}
}

// CreateDoctorRequest represents a create doctor request
type CreateDoctorRequest struct {
	UserID        *string `json:"user_id" validate:"omitempty,uuid"`
	FirstName     string  `json:"first_name" validate:"required"`
	LastName      string  `json:"last_name" validate:"required"`
	Specialty     string  `json:"specialty" validate:"required"`
	LicenseNumber string  `json:"license_number" validate:"required"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Phone         *string `json:"phone"`
}

// UpdateDoctorRequest represents an update doctor request
type UpdateDoctorRequest struct {
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	Specialty     *string `json:"specialty"`
	LicenseNumber *string `json:"license_number"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Phone         *string `json:"phone"`
	Active        *bool   `json:"active"`
}

// Create creates a new doctor profile. License number collisions
// within the clinic surface as a conflict from the unique constraint.
func (s *DoctorService) Create(ctx context.Context, req *CreateDoctorRequest) (*repository.Doctor, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	doctor := &repository.Doctor{
		TenantID:      tenantID,
		UserID:        req.UserID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Specialty:     req.Specialty,
		LicenseNumber: req.LicenseNumber,
		Email:         req.Email,
		Phone:         req.Phone,
		Active:        true,
	}

	if err := s.doctorRepo.Create(ctx, doctor); err != nil {
		return nil, err
	}

	s.publisher.PublishDoctorCreated(ctx, doctor)

	return doctor, nil
}

// GetByID gets a doctor by ID
func (s *DoctorService) GetByID(ctx context.Context, id string) (*repository.Doctor, error) {
	return s.doctorRepo.GetByID(ctx, id)
}

// List lists doctors, optionally filtered by specialty
func (s *DoctorService) List(ctx context.Context, specialty string, page, perPage int) ([]*repository.Doctor, int64, error) {
	return s.doctorRepo.List(ctx, specialty, page, perPage)
}

// Update updates a doctor profile
func (s *DoctorService) Update(ctx context.Context, id string, req *UpdateDoctorRequest) (*repository.Doctor, error) {
	doctor, err := s.doctorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		doctor.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		doctor.LastName = *req.LastName
	}
	if req.Specialty != nil {
		doctor.Specialty = *req.Specialty
	}
	if req.LicenseNumber != nil {
		doctor.LicenseNumber = *req.LicenseNumber
	}
	if req.Email != nil {
		doctor.Email = req.Email
	}
	if req.Phone != nil {
		doctor.Phone = req.Phone
	}
	if req.Active != nil {
		doctor.Active = *req.Active
	}

	if err := s.doctorRepo.Update(ctx, doctor); err != nil {
		return nil, err
	}

	return doctor, nil
}

// Delete soft-deletes a doctor profile
func (s *DoctorService) Delete(ctx context.Context, id string) error {
	return s.doctorRepo.SoftDelete(ctx, id)
}
