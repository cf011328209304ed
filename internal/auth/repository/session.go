package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
)

// Session represents a refresh-token session
type Session struct {
	ID               string     `db:"id"`
	UserID           string     `db:"user_id"`
	TenantID         string     `db:"tenant_id"`
	RefreshTokenHash string     `db:"refresh_token_hash"`
	UserAgent        *string    `db:"user_agent"`
	IPAddress        *string    `db:"ip_address"`
	ExpiresAt        time.Time  `db:"expires_at"`
	CreatedAt        time.Time  `db:"created_at"`
	LastUsedAt       time.Time  `db:"last_used_at"`
	RevokedAt        *time.Time `db:"revoked_at"`
}

// SessionRepository handles session persistence.
// public.sessions sits outside row-level security: refresh happens
// before a request has established tenant context. Rows still carry
// the tenant id so revocation and audit can act per clinic.
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateWithID creates a new session with a specific ID
func (r *SessionRepository) CreateWithID(ctx context.Context, id, userID, tenantID, refreshToken string, expiresAt time.Time, userAgent, ipAddress string) (*Session, error) {
	session := &Session{
		ID:               id,
		UserID:           userID,
		TenantID:         tenantID,
		RefreshTokenHash: hashToken(refreshToken),
		UserAgent:        &userAgent,
		IPAddress:        &ipAddress,
		ExpiresAt:        expiresAt,
		CreatedAt:        time.Now(),
		LastUsedAt:       time.Now(),
	}

	query := `
		INSERT INTO public.sessions (id, user_id, tenant_id, refresh_token_hash, user_agent, ip_address, expires_at, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.TenantID, session.RefreshTokenHash,
		session.UserAgent, session.IPAddress,
		session.ExpiresAt, session.CreatedAt, session.LastUsedAt,
	)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Create creates a new session with a generated ID
func (r *SessionRepository) Create(ctx context.Context, userID, tenantID, refreshToken string, expiresAt time.Time, userAgent, ipAddress string) (*Session, error) {
	return r.CreateWithID(ctx, uuid.New().String(), userID, tenantID, refreshToken, expiresAt, userAgent, ipAddress)
}

// GetByRefreshToken retrieves a session by its refresh token
func (r *SessionRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	var session Session
	query := `
		SELECT id, user_id, tenant_id, refresh_token_hash, user_agent, ip_address, expires_at, created_at, last_used_at, revoked_at
		FROM public.sessions
		WHERE refresh_token_hash = $1 AND expires_at > NOW()
	`

	err := r.db.GetContext(ctx, &session, query, hashToken(refreshToken))
	if err == sql.ErrNoRows {
		return nil, errors.Unauthorized("invalid session")
	}
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// UpdateLastUsed bumps the session's last_used_at
func (r *SessionRepository) UpdateLastUsed(ctx context.Context, id string) error {
	query := `UPDATE public.sessions SET last_used_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// RevokeByRefreshToken marks a session as revoked
func (r *SessionRepository) RevokeByRefreshToken(ctx context.Context, refreshToken string) error {
	query := `UPDATE public.sessions SET revoked_at = NOW() WHERE refresh_token_hash = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, hashToken(refreshToken))
	return err
}

// RevokeAllForUser revokes every active session for a user
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query := `UPDATE public.sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// DeleteExpired removes sessions that expired before the cutoff
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM public.sessions WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
