package service

import (
	"context"
	"time"

	"github.com/dentora/dentora-backend/internal/registry/repository"
	"github.com/dentora/dentora-backend/internal/scheduling/events"
	schedrepo "github.com/dentora/dentora-backend/internal/scheduling/repository"
	"github.com/dentora/dentora-backend/pkg/errors"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/tenant"
)

// validTransitions lists the allowed appointment status changes
var validTransitions = map[string][]string{
	schedrepo.StatusScheduled: {schedrepo.StatusConfirmed, schedrepo.StatusCancelled, schedrepo.StatusNoShow},
	schedrepo.StatusConfirmed: {schedrepo.StatusCompleted, schedrepo.StatusCancelled, schedrepo.StatusNoShow},
}

// AppointmentService handles scheduling business logic
type AppointmentService struct {
	appointmentRepo *schedrepo.AppointmentRepository
	patientRepo     *repository.PatientRepository
	doctorRepo      *repository.DoctorRepository
	publisher       *events.SchedulingEventPublisher
	logger          *logger.Logger
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	appointmentRepo *schedrepo.AppointmentRepository,
	patientRepo *repository.PatientRepository,
	doctorRepo *repository.DoctorRepository,
	publisher *events.SchedulingEventPublisher,
	log *logger.Logger,
) *AppointmentService {
	return &AppointmentService{
		appointmentRepo: appointmentRepo,
		patientRepo:     patientRepo,
		doctorRepo:      doctorRepo,
		publisher:       publisher,
		logger:          log,
	}
}

// ScheduleRequest represents a schedule appointment request
type ScheduleRequest struct {
	PatientID       string  `json:"patient_id" validate:"required,uuid"`
	DoctorID        string  `json:"doctor_id" validate:"required,uuid"`
	ScheduledAt     string  `json:"scheduled_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,min=5,max=480"`
	Reason          *string `json:"reason"`
	Notes           *string `json:"notes"`
}

// RescheduleRequest represents an appointment update
type RescheduleRequest struct {
	ScheduledAt     *string `json:"scheduled_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	Reason          *string `json:"reason"`
	Notes           *string `json:"notes"`
}

// Schedule books a new appointment. Patient and doctor are resolved
// inside the caller's tenant, so referencing another clinic's records
// fails as not found.
func (s *AppointmentService) Schedule(ctx context.Context, req *ScheduleRequest) (*schedrepo.Appointment, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, errors.BadRequest("invalid scheduled_at, expected RFC 3339")
	}
	if scheduledAt.Before(time.Now()) {
		return nil, errors.BadRequest("cannot schedule an appointment in the past")
	}

	if _, err := s.patientRepo.GetByID(ctx, req.PatientID); err != nil {
		return nil, err
	}
	doctor, err := s.doctorRepo.GetByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Active {
		return nil, errors.BadRequest("doctor is not active")
	}

	overlapping, err := s.appointmentRepo.CountOverlapping(ctx, req.DoctorID, scheduledAt, req.DurationMinutes, "")
	if err != nil {
		return nil, err
	}
	if overlapping > 0 {
		return nil, errors.Conflict("doctor already has an appointment in this time slot")
	}

	appointment := &schedrepo.Appointment{
		TenantID:        tenantID,
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
		Status:          schedrepo.StatusScheduled,
		Reason:          req.Reason,
		Notes:           req.Notes,
	}

	if err := s.appointmentRepo.Create(ctx, appointment); err != nil {
		return nil, err
	}

	s.publisher.PublishScheduled(ctx, appointment)

	s.logger.Info().
		Str("appointment_id", appointment.ID).
		Str("appointment_number", appointment.AppointmentNumber).
		Str("tenant_id", tenantID).
		Msg("Appointment scheduled")

	return appointment, nil
}

// GetByID gets an appointment by ID
func (s *AppointmentService) GetByID(ctx context.Context, id string) (*schedrepo.Appointment, error) {
	return s.appointmentRepo.GetByID(ctx, id)
}

// List lists appointments matching the filter
func (s *AppointmentService) List(ctx context.Context, filter schedrepo.ListFilter, page, perPage int) ([]*schedrepo.Appointment, int64, error) {
	return s.appointmentRepo.List(ctx, filter, page, perPage)
}

// Reschedule updates an appointment's time or notes
func (s *AppointmentService) Reschedule(ctx context.Context, id string, req *RescheduleRequest) (*schedrepo.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status == schedrepo.StatusCancelled || appointment.Status == schedrepo.StatusCompleted {
		return nil, errors.BadRequest("cannot reschedule a " + appointment.Status + " appointment")
	}

	if req.ScheduledAt != nil {
		scheduledAt, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			return nil, errors.BadRequest("invalid scheduled_at, expected RFC 3339")
		}
		appointment.ScheduledAt = scheduledAt
	}
	if req.DurationMinutes != nil {
		appointment.DurationMinutes = *req.DurationMinutes
	}
	if req.Reason != nil {
		appointment.Reason = req.Reason
	}
	if req.Notes != nil {
		appointment.Notes = req.Notes
	}

	if req.ScheduledAt != nil || req.DurationMinutes != nil {
		overlapping, err := s.appointmentRepo.CountOverlapping(ctx, appointment.DoctorID, appointment.ScheduledAt, appointment.DurationMinutes, appointment.ID)
		if err != nil {
			return nil, err
		}
		if overlapping > 0 {
			return nil, errors.Conflict("doctor already has an appointment in this time slot")
		}
	}

	if err := s.appointmentRepo.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.publisher.PublishUpdated(ctx, appointment)

	return appointment, nil
}

// ChangeStatus moves an appointment through its lifecycle
func (s *AppointmentService) ChangeStatus(ctx context.Context, id, newStatus string) (*schedrepo.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(appointment.Status, newStatus) {
		return nil, errors.BadRequest("cannot change status from " + appointment.Status + " to " + newStatus)
	}

	appointment.Status = newStatus
	if newStatus == schedrepo.StatusCancelled {
		now := time.Now()
		appointment.CancelledAt = &now
	}

	if err := s.appointmentRepo.Update(ctx, appointment); err != nil {
		return nil, err
	}

	if newStatus == schedrepo.StatusCancelled {
		s.publisher.PublishCancelled(ctx, appointment)
	} else {
		s.publisher.PublishUpdated(ctx, appointment)
	}

	return appointment, nil
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
