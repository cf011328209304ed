package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// User events
	EventUserCreated     = "user.created"
	EventUserUpdated     = "user.updated"
	EventUserDeleted     = "user.deleted"
	EventUserRoleChanged = "user.role.changed"

	// Registry events
	EventPatientCreated = "registry.patient.created"
	EventPatientUpdated = "registry.patient.updated"
	EventDoctorCreated  = "registry.doctor.created"
	EventDoctorUpdated  = "registry.doctor.updated"

	// Scheduling events
	EventAppointmentScheduled = "scheduling.appointment.scheduled"
	EventAppointmentUpdated   = "scheduling.appointment.updated"
	EventAppointmentCancelled = "scheduling.appointment.cancelled"

	// Clinical events
	EventPrescriptionIssued = "clinical.prescription.issued"

	// Tenant lifecycle events
	EventTenantRegistered  = "tenant.registered"
	EventTenantDeactivated = "tenant.deactivated"
)

// Exchange names
const (
	ExchangeUserEvents       = "dentora.users"
	ExchangeRegistryEvents   = "dentora.registry"
	ExchangeSchedulingEvents = "dentora.scheduling"
	ExchangeClinicalEvents   = "dentora.clinical"
	ExchangeTenantEvents     = "dentora.tenants"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// User events. Every event carries the tenant ID it was produced under;
// consumers must treat it as the row's owning clinic, never as a filter
// they can substitute.

// UserCreatedEvent is published when a staff account is created.
// The login directory consumer uses it to keep the pre-auth
// email-to-tenant mapping current.
type UserCreatedEvent struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	TenantID  string `json:"tenant_id"`
}

// UserUpdatedEvent is published when a staff account is updated.
// OldEmail and NewEmail let the login directory consumer track
// email changes; they are equal when the email did not change.
type UserUpdatedEvent struct {
	UserID    string `json:"user_id"`
	OldEmail  string `json:"old_email"`
	NewEmail  string `json:"new_email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	TenantID  string `json:"tenant_id"`
}

// UserDeletedEvent is published when a staff account is removed
type UserDeletedEvent struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
}

// PatientCreatedEvent is published when a patient record is created
type PatientCreatedEvent struct {
	PatientID string `json:"patient_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	TenantID  string `json:"tenant_id"`
}

// DoctorCreatedEvent is published when a doctor record is created
type DoctorCreatedEvent struct {
	DoctorID      string `json:"doctor_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Specialty     string `json:"specialty"`
	LicenseNumber string `json:"license_number"`
	TenantID      string `json:"tenant_id"`
}

// AppointmentEvent is published for appointment lifecycle changes
type AppointmentEvent struct {
	AppointmentID     string    `json:"appointment_id"`
	AppointmentNumber string    `json:"appointment_number"`
	PatientID         string    `json:"patient_id"`
	DoctorID          string    `json:"doctor_id"`
	ScheduledAt       time.Time `json:"scheduled_at"`
	Status            string    `json:"status"`
	TenantID          string    `json:"tenant_id"`
}

// PrescriptionIssuedEvent is published when a prescription is created
type PrescriptionIssuedEvent struct {
	PrescriptionID     string `json:"prescription_id"`
	PrescriptionNumber string `json:"prescription_number"`
	PatientID          string `json:"patient_id"`
	DoctorID           string `json:"doctor_id"`
	TenantID           string `json:"tenant_id"`
}

// TenantRegisteredEvent is published when a clinic completes self-registration
type TenantRegisteredEvent struct {
	TenantID   string `json:"tenant_id"`
	Name       string `json:"name"`
	AdminEmail string `json:"admin_email"`
}
