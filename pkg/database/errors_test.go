package database

import (
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentora/dentora-backend/pkg/errors"
)

func TestMapPQError_NotPQError(t *testing.T) {
	assert.Nil(t, MapPQError(assert.AnError))
	assert.Nil(t, MapPQError(nil))
}

func TestMapPQError_RLSViolationIsNotFound(t *testing.T) {
	appErr := MapPQError(&pq.Error{Code: "42501"})

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
	assert.ErrorIs(t, appErr, errors.ErrNotFound)
}

func TestMapPQError_TenantStampingOmitted(t *testing.T) {
	appErr := MapPQError(&pq.Error{Code: "23502", Column: "tenant_id"})

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
}

func TestMapPQError_NotNullOnOtherColumn(t *testing.T) {
	appErr := MapPQError(&pq.Error{Code: "23502", Column: "first_name"})

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, "must not be empty", appErr.Details["first_name"])
}

func TestMapPQError_UniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		message    string
	}{
		{"appointments_tenant_appointment_number_unique", "an appointment with this number already exists in this clinic"},
		{"prescriptions_tenant_prescription_number_unique", "a prescription with this number already exists in this clinic"},
		{"case_studies_tenant_case_number_unique", "a case study with this number already exists in this clinic"},
		{"doctors_tenant_license_number_unique", "a doctor with this license number already exists in this clinic"},
		{"users_tenant_email_unique", "a user with this email already exists"},
		{"something_else", "a record with these values already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			appErr := MapPQError(&pq.Error{Code: "23505", Constraint: tt.constraint})

			require.NotNil(t, appErr)
			assert.Equal(t, http.StatusConflict, appErr.StatusCode)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestMapPQError_CheckConstraints(t *testing.T) {
	appErr := MapPQError(&pq.Error{Code: "23514", Constraint: "tooth_number_valid"})
	require.NotNil(t, appErr)
	assert.Equal(t, "must be a valid FDI tooth number (11-48)", appErr.Details["tooth_number"])

	appErr = MapPQError(&pq.Error{Code: "23514", Constraint: "appointment_status_valid"})
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Details["status"], "scheduled")

	appErr = MapPQError(&pq.Error{Code: "23514", Constraint: "email_format"})
	require.NotNil(t, appErr)
	assert.Equal(t, "must be a valid email address", appErr.Details["email"])
}

func TestMapPQError_ForeignKeyViolation(t *testing.T) {
	appErr := MapPQError(&pq.Error{Code: "23503"})

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}
