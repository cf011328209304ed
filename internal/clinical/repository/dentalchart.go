package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
)

// ToothEntry is one tooth's state on a patient's dental chart.
// ToothNumber follows FDI notation: quadrant digit 1-4, position 1-8,
// so valid values run 11-18, 21-28, 31-38, 41-48.
type ToothEntry struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	PatientID   string    `db:"patient_id" json:"patient_id"`
	ToothNumber int       `db:"tooth_number" json:"tooth_number"`
	Condition   string    `db:"condition" json:"condition"`
	Surfaces    *string   `db:"surfaces" json:"surfaces,omitempty"`
	Treatment   *string   `db:"treatment" json:"treatment,omitempty"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	RecordedBy  *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ValidToothNumber reports whether n is a valid FDI tooth number
func ValidToothNumber(n int) bool {
	quadrant := n / 10
	position := n % 10
	return quadrant >= 1 && quadrant <= 4 && position >= 1 && position <= 8
}

// DentalChartRepository handles dental chart persistence
type DentalChartRepository struct {
	db *database.DB
}

// NewDentalChartRepository creates a new dental chart repository
func NewDentalChartRepository(db *database.DB) *DentalChartRepository {
	return &DentalChartRepository{db: db}
}

// Upsert records a tooth's state. One row per (patient, tooth): a
// second write for the same tooth replaces the previous state.
func (r *DentalChartRepository) Upsert(ctx context.Context, e *ToothEntry) error {
	if e.TenantID == "" {
		return errors.MissingTenantContext()
	}
	if !ValidToothNumber(e.ToothNumber) {
		return errors.BadRequest("invalid tooth number, expected FDI notation 11-48")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	return r.db.WithTenant(ctx, e.TenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO dental_chart_entries (id, tenant_id, patient_id, tooth_number, condition, surfaces, treatment, notes, recorded_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (tenant_id, patient_id, tooth_number)
			DO UPDATE SET condition = $5, surfaces = $6, treatment = $7, notes = $8, recorded_by = $9, updated_at = NOW()
			RETURNING id, created_at, updated_at
		`

		err := r.db.QueryRowxContext(ctx, query,
			e.ID, e.TenantID, e.PatientID, e.ToothNumber,
			e.Condition, e.Surfaces, e.Treatment, e.Notes, e.RecordedBy,
		).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
}

// GetChart returns all recorded teeth for a patient, ordered by tooth
// number
func (r *DentalChartRepository) GetChart(ctx context.Context, patientID string) ([]*ToothEntry, error) {
	var entries []*ToothEntry

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `
			SELECT id, tenant_id, patient_id, tooth_number, condition, surfaces, treatment, notes, recorded_by, created_at, updated_at
			FROM dental_chart_entries
			WHERE patient_id = $1
			ORDER BY tooth_number
		`
		return r.db.SelectContext(ctx, &entries, query, patientID)
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// DeleteEntry removes one tooth's record from a patient's chart
func (r *DentalChartRepository) DeleteEntry(ctx context.Context, patientID string, toothNumber int) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `DELETE FROM dental_chart_entries WHERE patient_id = $1 AND tooth_number = $2`

		result, err := r.db.ExecContext(ctx, query, patientID, toothNumber)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("dental chart entry")
		}
		return nil
	})
}
