package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	schedrepo "github.com/dentora/dentora-backend/internal/scheduling/repository"
	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
)

// Medication is one line of a prescription, stored as JSONB
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	DurationDays int    `json:"duration_days"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription represents an issued prescription. PrescriptionNumber
// is assigned per clinic, like appointment numbers.
type Prescription struct {
	ID                 string          `db:"id" json:"id"`
	TenantID           string          `db:"tenant_id" json:"tenant_id"`
	PrescriptionNumber string          `db:"prescription_number" json:"prescription_number"`
	PatientID          string          `db:"patient_id" json:"patient_id"`
	DoctorID           string          `db:"doctor_id" json:"doctor_id"`
	AppointmentID      *string         `db:"appointment_id" json:"appointment_id,omitempty"`
	Medications        json.RawMessage `db:"medications" json:"medications"`
	Notes              *string         `db:"notes" json:"notes,omitempty"`
	IssuedAt           time.Time       `db:"issued_at" json:"issued_at"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

const prescriptionCols = `id, tenant_id, prescription_number, patient_id, doctor_id, appointment_id, medications, notes, issued_at, created_at, updated_at`

// PrescriptionRepository handles prescription persistence
type PrescriptionRepository struct {
	db *database.DB
}

// NewPrescriptionRepository creates a new prescription repository
func NewPrescriptionRepository(db *database.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

// Create inserts a new prescription, claiming its number in the same
// unit of work.
func (r *PrescriptionRepository) Create(ctx context.Context, p *Prescription) error {
	if p.TenantID == "" {
		return errors.MissingTenantContext()
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	return r.db.WithTenant(ctx, p.TenantID, func(ctx context.Context) error {
		number, err := schedrepo.NextNumber(ctx, r.db, p.TenantID, "prescription", "RX")
		if err != nil {
			return err
		}
		p.PrescriptionNumber = number

		query := `
			INSERT INTO prescriptions (id, tenant_id, prescription_number, patient_id, doctor_id, appointment_id, medications, notes, issued_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			RETURNING issued_at, created_at, updated_at
		`

		err = r.db.QueryRowxContext(ctx, query,
			p.ID, p.TenantID, p.PrescriptionNumber, p.PatientID, p.DoctorID,
			p.AppointmentID, p.Medications, p.Notes,
		).Scan(&p.IssuedAt, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
}

// GetByID gets a prescription by ID within the caller's tenant
func (r *PrescriptionRepository) GetByID(ctx context.Context, id string) (*Prescription, error) {
	var p Prescription

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `SELECT ` + prescriptionCols + ` FROM prescriptions WHERE id = $1`
		return r.db.GetContext(ctx, &p, query, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("prescription")
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// ListForPatient lists a patient's prescriptions, newest first
func (r *PrescriptionRepository) ListForPatient(ctx context.Context, patientID string, page, perPage int) ([]*Prescription, int64, error) {
	var total int64
	var prescriptions []*Prescription

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM prescriptions WHERE patient_id = $1`, patientID); err != nil {
			return err
		}

		query := `
			SELECT ` + prescriptionCols + `
			FROM prescriptions
			WHERE patient_id = $1
			ORDER BY issued_at DESC
			LIMIT $2 OFFSET $3
		`
		return r.db.SelectContext(ctx, &prescriptions, query, patientID, perPage, (page-1)*perPage)
	})
	if err != nil {
		return nil, 0, err
	}

	return prescriptions, total, nil
}

// UpdateNotes amends a prescription's notes. Medications are
// immutable once issued.
func (r *PrescriptionRepository) UpdateNotes(ctx context.Context, id string, notes *string) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `UPDATE prescriptions SET notes = $2, updated_at = NOW() WHERE id = $1`

		result, err := r.db.ExecContext(ctx, query, id, notes)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("prescription")
		}
		return nil
	})
}
