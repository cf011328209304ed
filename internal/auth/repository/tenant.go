package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
)

// Tenant represents a clinic. It is the ownership root: every
// tenant-scoped row references exactly one tenant for its entire
// lifecycle. Tenants are soft-disabled, never hard-deleted, so
// referential history survives.
type Tenant struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	ContactEmail  *string    `db:"contact_email" json:"contact_email,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	Address       *string    `db:"address" json:"address,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	DeactivatedAt *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
}

// TenantRepository handles tenant persistence.
// public.tenants is the root table and is not itself tenant-scoped;
// it is read during login before any tenant context exists.
type TenantRepository struct {
	db *database.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *database.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create inserts a new tenant. Called only from the clinic
// registration flow, inside the same transaction that creates the
// first admin user.
func (r *TenantRepository) Create(ctx context.Context, t *Tenant) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.Active = true

	query := `
		INSERT INTO public.tenants (id, name, contact_email, phone, address, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		t.ID, t.Name, t.ContactEmail, t.Phone, t.Address, t.Active,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetByID gets a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	var t Tenant
	query := `
		SELECT id, name, contact_email, phone, address, active, created_at, updated_at, deactivated_at
		FROM public.tenants
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &t, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("clinic")
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// Update updates a tenant's profile fields
func (r *TenantRepository) Update(ctx context.Context, t *Tenant) error {
	query := `
		UPDATE public.tenants SET
			name = $2, contact_email = $3, phone = $4, address = $5, updated_at = NOW()
		WHERE id = $1 AND active = TRUE
	`

	result, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.ContactEmail, t.Phone, t.Address)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("clinic")
	}

	return nil
}

// Deactivate soft-disables a tenant. The row and everything it owns
// stay in place; login is refused for a deactivated clinic.
func (r *TenantRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE public.tenants SET
			active = FALSE, deactivated_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND active = TRUE
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("clinic")
	}

	return nil
}
