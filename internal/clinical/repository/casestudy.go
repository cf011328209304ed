package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	schedrepo "github.com/dentora/dentora-backend/internal/scheduling/repository"
	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
)

// CaseStudy represents a longitudinal treatment case for a patient
type CaseStudy struct {
	ID         string     `db:"id" json:"id"`
	TenantID   string     `db:"tenant_id" json:"tenant_id"`
	CaseNumber string     `db:"case_number" json:"case_number"`
	PatientID  string     `db:"patient_id" json:"patient_id"`
	DoctorID   string     `db:"doctor_id" json:"doctor_id"`
	Title      string     `db:"title" json:"title"`
	Diagnosis  *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Treatment  *string    `db:"treatment" json:"treatment,omitempty"`
	Status     string     `db:"status" json:"status"` // open, closed
	OpenedAt   time.Time  `db:"opened_at" json:"opened_at"`
	ClosedAt   *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

const caseStudyCols = `id, tenant_id, case_number, patient_id, doctor_id, title, diagnosis, treatment, status, opened_at, closed_at, created_at, updated_at`

// CaseStudyRepository handles case study persistence
type CaseStudyRepository struct {
	db *database.DB
}

// NewCaseStudyRepository creates a new case study repository
func NewCaseStudyRepository(db *database.DB) *CaseStudyRepository {
	return &CaseStudyRepository{db: db}
}

// Create inserts a new case study, claiming its number in the same
// unit of work.
func (r *CaseStudyRepository) Create(ctx context.Context, cs *CaseStudy) error {
	if cs.TenantID == "" {
		return errors.MissingTenantContext()
	}
	if cs.ID == "" {
		cs.ID = uuid.New().String()
	}
	if cs.Status == "" {
		cs.Status = "open"
	}

	return r.db.WithTenant(ctx, cs.TenantID, func(ctx context.Context) error {
		number, err := schedrepo.NextNumber(ctx, r.db, cs.TenantID, "case_study", "CS")
		if err != nil {
			return err
		}
		cs.CaseNumber = number

		query := `
			INSERT INTO case_studies (id, tenant_id, case_number, patient_id, doctor_id, title, diagnosis, treatment, status, opened_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			RETURNING opened_at, created_at, updated_at
		`

		err = r.db.QueryRowxContext(ctx, query,
			cs.ID, cs.TenantID, cs.CaseNumber, cs.PatientID, cs.DoctorID,
			cs.Title, cs.Diagnosis, cs.Treatment, cs.Status,
		).Scan(&cs.OpenedAt, &cs.CreatedAt, &cs.UpdatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
}

// GetByID gets a case study by ID within the caller's tenant
func (r *CaseStudyRepository) GetByID(ctx context.Context, id string) (*CaseStudy, error) {
	var cs CaseStudy

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `SELECT ` + caseStudyCols + ` FROM case_studies WHERE id = $1`
		return r.db.GetContext(ctx, &cs, query, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("case study")
	}
	if err != nil {
		return nil, err
	}

	return &cs, nil
}

// ListForPatient lists a patient's case studies, newest first
func (r *CaseStudyRepository) ListForPatient(ctx context.Context, patientID string, page, perPage int) ([]*CaseStudy, int64, error) {
	var total int64
	var cases []*CaseStudy

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM case_studies WHERE patient_id = $1`, patientID); err != nil {
			return err
		}

		query := `
			SELECT ` + caseStudyCols + `
			FROM case_studies
			WHERE patient_id = $1
			ORDER BY opened_at DESC
			LIMIT $2 OFFSET $3
		`
		return r.db.SelectContext(ctx, &cases, query, patientID, perPage, (page-1)*perPage)
	})
	if err != nil {
		return nil, 0, err
	}

	return cases, total, nil
}

// Update updates a case study's clinical fields
func (r *CaseStudyRepository) Update(ctx context.Context, cs *CaseStudy) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `
			UPDATE case_studies SET
				title = $2, diagnosis = $3, treatment = $4, status = $5, closed_at = $6, updated_at = NOW()
			WHERE id = $1
		`

		result, err := r.db.ExecContext(ctx, query, cs.ID, cs.Title, cs.Diagnosis, cs.Treatment, cs.Status, cs.ClosedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("case study")
		}
		return nil
	})
}
