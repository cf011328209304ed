package service

import (
	"context"

	"github.com/dentora/dentora-backend/internal/auth/events"
	"github.com/dentora/dentora-backend/internal/auth/repository"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/tenant"
)

// TenantService handles the clinic's own profile
type TenantService struct {
	tenantRepo *repository.TenantRepository
	publisher  *events.TenantEventPublisher
	logger     *logger.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(tenantRepo *repository.TenantRepository, publisher *events.TenantEventPublisher, log *logger.Logger) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		publisher:  publisher,
		logger:     log,
	}
}

// UpdateClinicRequest represents a clinic profile update
type UpdateClinicRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=2"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
}

// Get returns the caller's clinic profile
func (s *TenantService) Get(ctx context.Context) (*repository.Tenant, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.tenantRepo.GetByID(ctx, tenantID)
}

// Update updates the caller's clinic profile
func (s *TenantService) Update(ctx context.Context, req *UpdateClinicRequest) (*repository.Tenant, error) {
	clinic, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		clinic.Name = *req.Name
	}
	if req.ContactEmail != nil {
		clinic.ContactEmail = req.ContactEmail
	}
	if req.Phone != nil {
		clinic.Phone = req.Phone
	}
	if req.Address != nil {
		clinic.Address = req.Address
	}

	if err := s.tenantRepo.Update(ctx, clinic); err != nil {
		return nil, err
	}

	return clinic, nil
}

// Deactivate disables the caller's clinic. Existing sessions keep
// working until they expire; new logins are refused.
func (s *TenantService) Deactivate(ctx context.Context) error {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}

	if err := s.tenantRepo.Deactivate(ctx, tenantID); err != nil {
		return err
	}

	s.publisher.PublishTenantDeactivated(ctx, tenantID)
	s.logger.Info().Str("tenant_id", tenantID).Msg("Clinic deactivated")

	return nil
}
