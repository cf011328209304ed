package database

import (
	"strings"

	"github.com/lib/pq"

	"github.com/dentora/dentora-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// RLS policy violation (42501): an insert or update whose rows do
	// not match the session's tenant. Surfaced as not found so a
	// cross-tenant write attempt is indistinguishable from a missing
	// resource.
	case "42501":
		return errors.NotFound("resource")

	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		// A null tenant_id means a creation path skipped stamping.
		// That is a defect in the service layer, not caller input.
		if pqErr.Column == "tenant_id" {
			return errors.Internal("tenant stamping omitted on insert")
		}
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "email_format"):
		return errors.Validation(map[string]string{
			"email": "must be a valid email address",
		})

	case strings.Contains(constraint, "appointment_status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: scheduled, confirmed, completed, cancelled, no_show",
		})

	case strings.Contains(constraint, "tooth_number_valid"):
		return errors.Validation(map[string]string{
			"tooth_number": "must be a valid FDI tooth number (11-48)",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
// All business-meaningful uniqueness is composite over (tenant_id, natural key),
// so these conflicts are always within the caller's own clinic.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "appointment_number"):
		return "an appointment with this number already exists in this clinic"
	case strings.Contains(constraint, "prescription_number"):
		return "a prescription with this number already exists in this clinic"
	case strings.Contains(constraint, "case_number"):
		return "a case study with this number already exists in this clinic"
	case strings.Contains(constraint, "license_number"):
		return "a doctor with this license number already exists in this clinic"
	case strings.Contains(constraint, "email"):
		return "a user with this email already exists"
	default:
		return "a record with these values already exists"
	}
}
