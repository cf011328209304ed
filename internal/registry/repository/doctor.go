package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
)

// Doctor represents a practitioner profile. LicenseNumber is unique
// per clinic, not globally: two clinics may each employ a doctor with
// the same license.
type Doctor struct {
	ID            string     `db:"id" json:"id"`
	TenantID      string     `db:"tenant_id" json:"tenant_id"`
	UserID        *string    `db:"user_id" json:"user_id,omitempty"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	Specialty     string     `db:"specialty" json:"specialty"`
	LicenseNumber string     `db:"license_number" json:"license_number"`
	Email         *string    `db:"email" json:"email,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at" json:"-"`
}

const doctorCols = `id, tenant_id, user_id, first_name, last_name, specialty, license_number, email, phone, active, created_at, updated_at`

// DoctorRepository handles doctor persistence
type DoctorRepository struct {
	db *database.DB
}

// NewDoctorRepository creates a new doctor repository
func NewDoctorRepository(db *database.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// Create inserts a new doctor
func (r *DoctorRepository) Create(ctx context.Context, d *Doctor) error {
	if d.TenantID == "" {
		return errors.MissingTenantContext()
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}

	return r.db.WithTenant(ctx, d.TenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO doctors (id, tenant_id, user_id, first_name, last_name, specialty, license_number, email, phone, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`

		err := r.db.QueryRowxContext(ctx, query,
			d.ID, d.TenantID, d.UserID, d.FirstName, d.LastName,
			d.Specialty, d.LicenseNumber, d.Email, d.Phone, d.Active,
		).Scan(&d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
}

// GetByID gets a doctor by ID within the caller's tenant
func (r *DoctorRepository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	var d Doctor

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `SELECT ` + doctorCols + ` FROM doctors WHERE id = $1 AND deleted_at IS NULL`
		return r.db.GetContext(ctx, &d, query, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("doctor")
	}
	if err != nil {
		return nil, err
	}

	return &d, nil
}

// List lists doctors, optionally filtered by specialty
func (r *DoctorRepository) List(ctx context.Context, specialty string, page, perPage int) ([]*Doctor, int64, error) {
	var total int64
	var doctors []*Doctor

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		where := `deleted_at IS NULL`
		args := []interface{}{}
		if specialty != "" {
			where += ` AND specialty = $1`
			args = append(args, specialty)
		}

		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM doctors WHERE `+where, args...); err != nil {
			return err
		}

		offset := (page - 1) * perPage
		query := `
			SELECT ` + doctorCols + `
			FROM doctors
			WHERE ` + where + `
			ORDER BY last_name, first_name
			LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
		args = append(args, perPage, offset)
		return r.db.SelectContext(ctx, &doctors, query, args...)
	})
	if err != nil {
		return nil, 0, err
	}

	return doctors, total, nil
}

// Update updates a doctor's fields
func (r *DoctorRepository) Update(ctx context.Context, d *Doctor) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `
			UPDATE doctors SET
				first_name = $2, last_name = $3, specialty = $4, license_number = $5,
				email = $6, phone = $7, active = $8, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
		`

		result, err := r.db.ExecContext(ctx, query,
			d.ID, d.FirstName, d.LastName, d.Specialty, d.LicenseNumber,
			d.Email, d.Phone, d.Active,
		)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("doctor")
		}
		return nil
	})
}

// SoftDelete marks a doctor as deleted
func (r *DoctorRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `UPDATE doctors SET deleted_at = NOW(), active = false, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("doctor")
		}
		return nil
	})
}
