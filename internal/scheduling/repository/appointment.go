package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/errors"
)

// Appointment statuses
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Appointment represents a booked visit. AppointmentNumber is assigned
// per clinic: two clinics both start at APT-0001.
type Appointment struct {
	ID                string     `db:"id" json:"id"`
	TenantID          string     `db:"tenant_id" json:"tenant_id"`
	AppointmentNumber string     `db:"appointment_number" json:"appointment_number"`
	PatientID         string     `db:"patient_id" json:"patient_id"`
	DoctorID          string     `db:"doctor_id" json:"doctor_id"`
	ScheduledAt       time.Time  `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes   int        `db:"duration_minutes" json:"duration_minutes"`
	Status            string     `db:"status" json:"status"`
	Reason            *string    `db:"reason" json:"reason,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	CancelledAt       *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

const appointmentCols = `id, tenant_id, appointment_number, patient_id, doctor_id, scheduled_at, duration_minutes, status, reason, notes, created_at, updated_at, cancelled_at`

// AppointmentRepository handles appointment persistence
type AppointmentRepository struct {
	db *database.DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *database.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// NextNumber claims the next value of a per-tenant counter. Must run
// inside the tenant's unit of work so the increment commits or rolls
// back together with the row that consumes it.
func NextNumber(ctx context.Context, db *database.DB, tenantID, counterName, prefix string) (string, error) {
	query := `
		INSERT INTO tenant_counters (tenant_id, counter_name, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, counter_name)
		DO UPDATE SET value = tenant_counters.value + 1
		RETURNING value
	`

	var value int64
	if err := db.QueryRowxContext(ctx, query, tenantID, counterName).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to claim %s counter: %w", counterName, err)
	}

	return prefix + "-" + fmt.Sprintf("%04d", value), nil
}

// Create inserts a new appointment, claiming its number in the same
// unit of work.
func (r *AppointmentRepository) Create(ctx context.Context, a *Appointment) error {
	if a.TenantID == "" {
		return errors.MissingTenantContext()
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}

	return r.db.WithTenant(ctx, a.TenantID, func(ctx context.Context) error {
		number, err := NextNumber(ctx, r.db, a.TenantID, "appointment", "APT")
		if err != nil {
			return err
		}
		a.AppointmentNumber = number

		query := `
			INSERT INTO appointments (id, tenant_id, appointment_number, patient_id, doctor_id, scheduled_at, duration_minutes, status, reason, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`

		err = r.db.QueryRowxContext(ctx, query,
			a.ID, a.TenantID, a.AppointmentNumber, a.PatientID, a.DoctorID,
			a.ScheduledAt, a.DurationMinutes, a.Status, a.Reason, a.Notes,
		).Scan(&a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
}

// GetByID gets an appointment by ID within the caller's tenant
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	var a Appointment

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `SELECT ` + appointmentCols + ` FROM appointments WHERE id = $1`
		return r.db.GetContext(ctx, &a, query, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("appointment")
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// ListFilter narrows an appointment listing
type ListFilter struct {
	PatientID string
	DoctorID  string
	Status    string
	From      *time.Time
	To        *time.Time
}

// List lists appointments matching the filter
func (r *AppointmentRepository) List(ctx context.Context, filter ListFilter, page, perPage int) ([]*Appointment, int64, error) {
	var total int64
	var appointments []*Appointment

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		where := `1=1`
		args := []interface{}{}
		next := func() string {
			return "$" + strconv.Itoa(len(args))
		}

		if filter.PatientID != "" {
			args = append(args, filter.PatientID)
			where += ` AND patient_id = ` + next()
		}
		if filter.DoctorID != "" {
			args = append(args, filter.DoctorID)
			where += ` AND doctor_id = ` + next()
		}
		if filter.Status != "" {
			args = append(args, filter.Status)
			where += ` AND status = ` + next()
		}
		if filter.From != nil {
			args = append(args, *filter.From)
			where += ` AND scheduled_at >= ` + next()
		}
		if filter.To != nil {
			args = append(args, *filter.To)
			where += ` AND scheduled_at < ` + next()
		}

		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM appointments WHERE `+where, args...); err != nil {
			return err
		}

		args = append(args, perPage)
		limitPh := next()
		args = append(args, (page-1)*perPage)
		offsetPh := next()

		query := `
			SELECT ` + appointmentCols + `
			FROM appointments
			WHERE ` + where + `
			ORDER BY scheduled_at
			LIMIT ` + limitPh + ` OFFSET ` + offsetPh
		return r.db.SelectContext(ctx, &appointments, query, args...)
	})
	if err != nil {
		return nil, 0, err
	}

	return appointments, total, nil
}

// Update updates an appointment's schedule fields and status
func (r *AppointmentRepository) Update(ctx context.Context, a *Appointment) error {
	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `
			UPDATE appointments SET
				scheduled_at = $2, duration_minutes = $3, status = $4,
				reason = $5, notes = $6, cancelled_at = $7, updated_at = NOW()
			WHERE id = $1
		`

		result, err := r.db.ExecContext(ctx, query,
			a.ID, a.ScheduledAt, a.DurationMinutes, a.Status, a.Reason, a.Notes, a.CancelledAt,
		)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("appointment")
		}
		return nil
	})
}

// CountOverlapping counts active appointments for a doctor that
// overlap the given window. Used to refuse double booking.
func (r *AppointmentRepository) CountOverlapping(ctx context.Context, doctorID string, start time.Time, durationMinutes int, excludeID string) (int64, error) {
	var count int64

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `
			SELECT COUNT(*)
			FROM appointments
			WHERE doctor_id = $1
			  AND status IN ('scheduled', 'confirmed')
			  AND ($2 = '' OR id::text != $2)
			  AND scheduled_at < $4
			  AND scheduled_at + (duration_minutes || ' minutes')::interval > $3
		`
		end := start.Add(time.Duration(durationMinutes) * time.Minute)
		return r.db.GetContext(ctx, &count, query, doctorID, excludeID, start, end)
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}
