package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
)

// DirectoryEntry maps a login email to its user and clinic.
//
// public.login_directory is the one deliberate carve-out from row-level
// security: during login no tenant context exists yet, so tenant
// resolution has to happen against a table the policy does not cover.
// It holds only what that narrow path needs; everything about the user
// itself lives in the tenant-scoped users table.
type DirectoryEntry struct {
	Email     string    `db:"email"`
	UserID    string    `db:"user_id"`
	TenantID  string    `db:"tenant_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DirectoryRepository handles login directory persistence
type DirectoryRepository struct {
	db *database.DB
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *database.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetByEmail resolves the tenant for a login email.
// This is the primary pre-authentication lookup.
func (r *DirectoryRepository) GetByEmail(ctx context.Context, email string) (*DirectoryEntry, error) {
	var entry DirectoryEntry
	query := `
		SELECT email, user_id, tenant_id, created_at, updated_at
		FROM public.login_directory
		WHERE email = $1
	`

	err := r.db.GetContext(ctx, &entry, query, email)
	if err == sql.ErrNoRows {
		// Indistinguishable from bad credentials on purpose
		return nil, errors.InvalidCredentials()
	}
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// Insert adds a new directory entry and fails with a Conflict when the
// email is already mapped. Registration must never re-point an existing
// email to another clinic, so this path has no ON CONFLICT clause.
func (r *DirectoryRepository) Insert(ctx context.Context, entry *DirectoryEntry) error {
	query := `
		INSERT INTO public.login_directory (email, user_id, tenant_id)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.ExecContext(ctx, query, entry.Email, entry.UserID, entry.TenantID)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// Upsert inserts or updates a directory entry.
// Called by the directory sync consumer, which follows events from the
// tenant-scoped users table and so may legitimately replace a mapping.
func (r *DirectoryRepository) Upsert(ctx context.Context, entry *DirectoryEntry) error {
	query := `
		INSERT INTO public.login_directory (email, user_id, tenant_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			tenant_id = EXCLUDED.tenant_id,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, entry.Email, entry.UserID, entry.TenantID)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return err
}

// Rename moves an entry from an old email to a new one, keeping the
// user and tenant mapping.
func (r *DirectoryRepository) Rename(ctx context.Context, oldEmail, newEmail string) error {
	query := `
		UPDATE public.login_directory SET email = $2, updated_at = NOW()
		WHERE email = $1
	`
	_, err := r.db.ExecContext(ctx, query, oldEmail, newEmail)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
	}
	return err
}

// DeleteByUserID removes all directory entries for a user
func (r *DirectoryRepository) DeleteByUserID(ctx context.Context, userID string) error {
	query := `DELETE FROM public.login_directory WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
