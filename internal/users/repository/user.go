package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
)

// User represents a staff account. Tenant-scoped: the tenant_id column
// is stamped by the service layer on every insert and checked by the
// row-level security policy; it never changes after creation.
type User struct {
	ID           string     `db:"id" json:"id"`
	TenantID     string     `db:"tenant_id" json:"tenant_id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Role         string     `db:"role" json:"role"`
	Status       string     `db:"status" json:"status"` // active, suspended, removed
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
}

// FullName returns the user's full name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

const userCols = `id, tenant_id, email, password_hash, first_name, last_name, role, status, created_at, updated_at`

// UserRepository handles staff account persistence
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. u.TenantID must already be stamped by the
// caller; the insert runs under that tenant's unit of work so the
// policy's WITH CHECK verifies the value.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	if u.TenantID == "" {
		return errors.MissingTenantContext()
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Status == "" {
		u.Status = "active"
	}

	return r.db.WithTenant(ctx, u.TenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO users (id, tenant_id, email, password_hash, first_name, last_name, role, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`

		err := r.db.QueryRowxContext(ctx, query,
			u.ID, u.TenantID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Status,
		).Scan(&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
}

// GetByID gets a user by ID within the caller's tenant
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	var u User

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `SELECT ` + userCols + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
		return r.db.GetContext(ctx, &u, query, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// GetByEmail gets a user by email within the caller's tenant.
// Used by login after the directory resolved the tenant.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `SELECT ` + userCols + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
		return r.db.GetContext(ctx, &u, query, email)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// List lists users with pagination
func (r *UserRepository) List(ctx context.Context, page, perPage int) ([]*User, int64, error) {
	var total int64
	var users []*User

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		countQuery := `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
			return err
		}

		offset := (page - 1) * perPage
		query := `
			SELECT ` + userCols + `
			FROM users
			WHERE deleted_at IS NULL
			ORDER BY last_name, first_name
			LIMIT $1 OFFSET $2
		`
		return r.db.SelectContext(ctx, &users, query, perPage, offset)
	})
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Update updates a user's mutable fields. tenant_id is intentionally
// absent from the SET list: ownership never moves between clinics.
func (r *UserRepository) Update(ctx context.Context, u *User) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `
			UPDATE users SET
				email = $2, first_name = $3, last_name = $4, role = $5, status = $6, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
		`

		result, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.Status)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("user")
		}
		return nil
	})
}

// UpdatePassword sets a new password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

		result, err := r.db.ExecContext(ctx, query, id, passwordHash)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("user")
		}
		return nil
	})
}

// SoftDelete marks a user as removed
func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `UPDATE users SET deleted_at = NOW(), status = 'removed', updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("user")
		}
		return nil
	})
}
