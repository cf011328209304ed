package service

import (
	"context"
	"encoding/json"

	"golang.org/x/crypto/bcrypt"

	"github.com/dentora/dentora-backend/internal/users/events"
	"github.com/dentora/dentora-backend/internal/users/repository"
	"github.com/dentora/dentora-backend/pkg/actor"
	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/permissions"
	"github.com/dentora/dentora-backend/pkg/tenant"
)

// UserService handles staff account business logic
type UserService struct {
	db        *database.DB
	userRepo  *repository.UserRepository
	auditRepo *repository.AuditRepository
	publisher *events.UserEventPublisher
	logger    *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(
	db *database.DB,
	userRepo *repository.UserRepository,
	auditRepo *repository.AuditRepository,
	publisher *events.UserEventPublisher,
	log *logger.Logger,
) *UserService {
	return &UserService{
		db:        db,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		publisher: publisher,
		logger:    log,
	}
}

// CreateUserRequest represents a create user request
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required"`
}

// UpdateUserRequest represents an update user request
type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
	Status    *string `json:"status" validate:"omitempty,oneof=active suspended"`
}

// Create creates a new staff account for the caller's clinic. The
// tenant id is resolved from the request context, never from the
// payload.
func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*repository.User, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if !permissions.ValidRole(req.Role) {
		return nil, errors.BadRequest("invalid role")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	user := &repository.User{
		TenantID:     tenantID,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Status:       "active",
	}

	// The account and its audit entry commit together.
	err = s.db.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		return s.audit(ctx, "create_user", user.ID, map[string]string{"email": user.Email, "role": user.Role})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishUserCreated(ctx, user)

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Msg("Staff account created")

	return user, nil
}

// GetByID gets a user by ID
func (s *UserService) GetByID(ctx context.Context, id string) (*repository.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// List lists users with pagination
func (s *UserService) List(ctx context.Context, page, perPage int) ([]*repository.User, int64, error) {
	return s.userRepo.List(ctx, page, perPage)
}

// Update updates a staff account
func (s *UserService) Update(ctx context.Context, id string, req *UpdateUserRequest) (*repository.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldEmail := user.Email
	oldRole := user.Role

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Role != nil {
		if !permissions.ValidRole(*req.Role) {
			return nil, errors.BadRequest("invalid role")
		}
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	err = s.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Update(ctx, user); err != nil {
			return err
		}
		if user.Role != oldRole {
			if err := s.audit(ctx, "change_role", user.ID, map[string]string{"old_role": oldRole, "new_role": user.Role}); err != nil {
				return err
			}
		}
		return s.audit(ctx, "update_user", user.ID, map[string]string{"email": user.Email})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishUserUpdated(ctx, user, oldEmail)
	if user.Role != oldRole {
		s.publisher.PublishRoleChanged(ctx, user, oldRole)
	}

	return user, nil
}

// ChangePassword changes a user's own password
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return errors.InvalidCredentials()
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal("failed to hash password")
	}

	return s.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		if err := s.userRepo.UpdatePassword(ctx, id, string(hashed)); err != nil {
			return err
		}
		return s.audit(ctx, "change_password", id, nil)
	})
}

// Delete soft-deletes a staff account
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	act := actor.FromContext(ctx)
	if act != nil && act.ID == id {
		return errors.BadRequest("cannot remove your own account")
	}

	err = s.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		if err := s.userRepo.SoftDelete(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, "delete_user", user.ID, map[string]string{"email": user.Email})
	})
	if err != nil {
		return err
	}

	s.publisher.PublishUserDeleted(ctx, user.ID, user.Email, user.TenantID)

	return nil
}

// AuditTrail returns the audit entries for one user
func (s *UserService) AuditTrail(ctx context.Context, targetID string, limit int) ([]*repository.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.auditRepo.ListForTarget(ctx, targetID, limit)
}

// audit writes one trail entry. Called inside the mutation's unit of
// work so the entry commits, or rolls back, with the change it records.
func (s *UserService) audit(ctx context.Context, action, targetID string, detail map[string]string) error {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}

	entry := &repository.AuditEntry{
		TenantID: tenantID,
		Action:   action,
		TargetID: targetID,
	}
	if act := actor.FromContext(ctx); act != nil {
		entry.ActorID = act.ID
		entry.ActorEmail = act.Email
	}
	if detail != nil {
		if raw, err := json.Marshal(detail); err == nil {
			entry.Detail = raw
		}
	}

	return s.auditRepo.Record(ctx, entry)
}
