package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
)

// Patient represents a patient record
type Patient struct {
	ID           string     `db:"id" json:"id"`
	TenantID     string     `db:"tenant_id" json:"tenant_id"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Email        *string    `db:"email" json:"email,omitempty"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth  *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender       *string    `db:"gender" json:"gender,omitempty"`
	Address      *string    `db:"address" json:"address,omitempty"`
	MedicalNotes *string    `db:"medical_notes" json:"medical_notes,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
}

const patientCols = `id, tenant_id, first_name, last_name, email, phone, date_of_birth, gender, address, medical_notes, created_at, updated_at`

// PatientRepository handles patient persistence
type PatientRepository struct {
	db *database.DB
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *database.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// Create inserts a new patient
func (r *PatientRepository) Create(ctx context.Context, p *Patient) error {
	if p.TenantID == "" {
		return errors.MissingTenantContext()
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	return r.db.WithTenant(ctx, p.TenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO patients (id, tenant_id, first_name, last_name, email, phone, date_of_birth, gender, address, medical_notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`

		err := r.db.QueryRowxContext(ctx, query,
			p.ID, p.TenantID, p.FirstName, p.LastName, p.Email, p.Phone,
			p.DateOfBirth, p.Gender, p.Address, p.MedicalNotes,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
}

// GetByID gets a patient by ID within the caller's tenant
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	var p Patient

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `SELECT ` + patientCols + ` FROM patients WHERE id = $1 AND deleted_at IS NULL`
		return r.db.GetContext(ctx, &p, query, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("patient")
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// List lists patients with optional name search and pagination
func (r *PatientRepository) List(ctx context.Context, search string, page, perPage int) ([]*Patient, int64, error) {
	var total int64
	var patients []*Patient

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		where := `deleted_at IS NULL`
		args := []interface{}{}
		if search != "" {
			where += ` AND (first_name ILIKE $1 OR last_name ILIKE $1)`
			args = append(args, "%"+search+"%")
		}

		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM patients WHERE `+where, args...); err != nil {
			return err
		}

		offset := (page - 1) * perPage
		query := `
			SELECT ` + patientCols + `
			FROM patients
			WHERE ` + where + `
			ORDER BY last_name, first_name
			LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
		args = append(args, perPage, offset)
		return r.db.SelectContext(ctx, &patients, query, args...)
	})
	if err != nil {
		return nil, 0, err
	}

	return patients, total, nil
}

// Update updates a patient's fields
func (r *PatientRepository) Update(ctx context.Context, p *Patient) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `
			UPDATE patients SET
				first_name = $2, last_name = $3, email = $4, phone = $5,
				date_of_birth = $6, gender = $7, address = $8, medical_notes = $9,
				updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
		`

		result, err := r.db.ExecContext(ctx, query,
			p.ID, p.FirstName, p.LastName, p.Email, p.Phone,
			p.DateOfBirth, p.Gender, p.Address, p.MedicalNotes,
		)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("patient")
		}
		return nil
	})
}

// SoftDelete marks a patient as deleted
func (r *PatientRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `UPDATE patients SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("patient")
		}
		return nil
	})
}
