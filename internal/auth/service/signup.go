package service

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dentora/dentora-backend/internal/auth/events"
	"github.com/dentora/dentora-backend/internal/auth/repository"
	usersrepo "github.com/dentora/dentora-backend/internal/users/repository"
	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/permissions"
)

// SignupService handles clinic self-registration.
//
// Registration is the bootstrap case: the tenant row, the first admin
// user and the directory entry are created in a single unit of work
// under the new tenant's id, so a failure at any step leaves nothing
// behind.
type SignupService struct {
	db            *database.DB
	tenantRepo    *repository.TenantRepository
	directoryRepo *repository.DirectoryRepository
	userRepo      *usersrepo.UserRepository
	publisher     *events.TenantEventPublisher
	logger        *logger.Logger
}

// NewSignupService creates a new signup service
func NewSignupService(
	db *database.DB,
	tenantRepo *repository.TenantRepository,
	directoryRepo *repository.DirectoryRepository,
	userRepo *usersrepo.UserRepository,
	publisher *events.TenantEventPublisher,
	log *logger.Logger,
) *SignupService {
	return &SignupService{
		db:            db,
		tenantRepo:    tenantRepo,
		directoryRepo: directoryRepo,
		userRepo:      userRepo,
		publisher:     publisher,
		logger:        log,
	}
}

// RegisterClinicRequest represents a clinic registration request
type RegisterClinicRequest struct {
	ClinicName     string  `json:"clinic_name" validate:"required,min=2"`
	ContactEmail   *string `json:"contact_email" validate:"omitempty,email"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	AdminEmail     string  `json:"admin_email" validate:"required,email"`
	AdminPassword  string  `json:"admin_password" validate:"required,min=8"`
	AdminFirstName string  `json:"admin_first_name" validate:"required"`
	AdminLastName  string  `json:"admin_last_name" validate:"required"`
}

// RegisterClinicResponse represents a completed registration. Both
// values come from the writes made in the transaction, not from a
// follow-up read.
type RegisterClinicResponse struct {
	Clinic *repository.Tenant `json:"clinic"`
	Admin  *usersrepo.User    `json:"admin"`
}

// RegisterClinic creates a new clinic with its first admin account.
// Duplicate emails are caught by the directory's primary key inside the
// transaction; a pre-check here would race concurrent registrations.
func (s *SignupService) RegisterClinic(ctx context.Context, req *RegisterClinicRequest) (*RegisterClinicResponse, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	clinic := &repository.Tenant{
		ID:           uuid.New().String(),
		Name:         req.ClinicName,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		Address:      req.Address,
		Active:       true,
	}

	admin := &usersrepo.User{
		ID:           uuid.New().String(),
		TenantID:     clinic.ID,
		Email:        req.AdminEmail,
		PasswordHash: string(hashedPassword),
		FirstName:    req.AdminFirstName,
		LastName:     req.AdminLastName,
		Role:         permissions.RoleAdmin,
		Status:       "active",
	}

	err = s.db.WithTenant(ctx, clinic.ID, func(ctx context.Context) error {
		if err := s.tenantRepo.Create(ctx, clinic); err != nil {
			return err
		}
		if err := s.userRepo.Create(ctx, admin); err != nil {
			return err
		}
		return s.directoryRepo.Insert(ctx, &repository.DirectoryEntry{
			Email:    admin.Email,
			UserID:   admin.ID,
			TenantID: clinic.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishTenantRegistered(ctx, clinic, admin.Email)

	s.logger.Info().
		Str("tenant_id", clinic.ID).
		Str("clinic", clinic.Name).
		Msg("Clinic registered")

	return &RegisterClinicResponse{Clinic: clinic, Admin: admin}, nil
}
