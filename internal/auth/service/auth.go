package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dentora/dentora-backend/internal/auth/jwt"
	"github.com/dentora/dentora-backend/internal/auth/repository"
	usersrepo "github.com/dentora/dentora-backend/internal/users/repository"
	"github.com/dentora/dentora-backend/pkg/errors"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/tenant"
	"github.com/dentora/dentora-backend/pkg/tokencache"
)

// AuthService handles login, refresh and logout.
//
// Login is the one flow that starts without a tenant: the email is
// resolved through the public login directory first, then the
// credential check runs inside that tenant's unit of work.
type AuthService struct {
	directoryRepo *repository.DirectoryRepository
	tenantRepo    *repository.TenantRepository
	sessionRepo   *repository.SessionRepository
	userRepo      *usersrepo.UserRepository
	jwtManager    *jwt.Manager
	revoked       *tokencache.Cache
	logger        *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	directoryRepo *repository.DirectoryRepository,
	tenantRepo *repository.TenantRepository,
	sessionRepo *repository.SessionRepository,
	userRepo *usersrepo.UserRepository,
	jwtManager *jwt.Manager,
	revoked *tokencache.Cache,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		directoryRepo: directoryRepo,
		tenantRepo:    tenantRepo,
		sessionRepo:   sessionRepo,
		userRepo:      userRepo,
		jwtManager:    jwtManager,
		revoked:       revoked,
		logger:        log,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	User   *usersrepo.User `json:"user"`
	Tokens *jwt.TokenPair  `json:"tokens"`
}

// Login authenticates a user and issues a token pair
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, userAgent, ipAddress string) (*LoginResponse, error) {
	entry, err := s.directoryRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	clinic, err := s.tenantRepo.GetByID(ctx, entry.TenantID)
	if err != nil {
		return nil, errors.InvalidCredentials()
	}
	if !clinic.Active {
		return nil, errors.Forbidden("clinic is deactivated")
	}

	// The credential check itself runs tenant-scoped: the user row is
	// only visible inside its own clinic's unit of work.
	tenantCtx := tenant.WithTenant(ctx, entry.TenantID)
	user, err := s.userRepo.GetByEmail(tenantCtx, req.Email)
	if err != nil {
		return nil, errors.InvalidCredentials()
	}
	if user.Status != "active" {
		return nil, errors.Forbidden("account is not active")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	tokens, err := s.issueSession(ctx, user, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("tenant_id", user.TenantID).
		Msg("User logged in")

	return &LoginResponse{User: user, Tokens: tokens}, nil
}

// Refresh rotates a refresh token and issues a new token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*jwt.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if session.RevokedAt != nil {
		return nil, errors.TokenInvalid()
	}

	tenantCtx := tenant.WithTenant(ctx, claims.TenantID)
	user, err := s.userRepo.GetByID(tenantCtx, claims.UserID)
	if err != nil {
		return nil, errors.TokenInvalid()
	}
	if user.Status != "active" {
		return nil, errors.Forbidden("account is not active")
	}

	// Rotation: the old session is revoked and a fresh one created, so
	// a replayed refresh token fails on the revoked check above.
	if err := s.sessionRepo.RevokeByRefreshToken(ctx, refreshToken); err != nil {
		s.logger.WithError(err).Warn().Str("session_id", session.ID).Msg("Failed to revoke rotated session")
	}

	return s.issueSession(ctx, user, userAgent, ipAddress)
}

// Logout revokes the session and denylists the access token until it
// would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if claims, err := s.jwtManager.ValidateAccessToken(accessToken); err == nil {
		if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.logger.WithError(err).Warn().Msg("Failed to denylist access token")
		}
	}

	if refreshToken != "" {
		if err := s.sessionRepo.RevokeByRefreshToken(ctx, refreshToken); err != nil {
			return err
		}
	}

	return nil
}

// LogoutAll revokes every session for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	return s.sessionRepo.RevokeAllForUser(ctx, userID)
}

// CurrentUser returns the authenticated user's profile
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*usersrepo.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// CleanupSessions removes sessions that expired before the cutoff
func (s *AuthService) CleanupSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, time.Now().Add(-olderThan))
}

func (s *AuthService) issueSession(ctx context.Context, user *usersrepo.User, userAgent, ipAddress string) (*jwt.TokenPair, error) {
	sessionID := uuid.New().String()

	tokens, err := s.jwtManager.GenerateTokenPair(&jwt.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.FullName(),
		Role:     user.Role,
		TenantID: user.TenantID,
	}, sessionID)
	if err != nil {
		return nil, errors.Internal("failed to generate tokens")
	}

	expiresAt := time.Now().Add(s.jwtManager.GetRefreshExpiry())
	if _, err := s.sessionRepo.CreateWithID(ctx, sessionID, user.ID, user.TenantID, tokens.RefreshToken, expiresAt, userAgent, ipAddress); err != nil {
		return nil, errors.Internal("failed to create session")
	}

	return tokens, nil
}
