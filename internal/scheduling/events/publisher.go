package events

import (
	"context"

	"github.com/dentora/dentora-backend/internal/scheduling/repository"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/messaging"
)

// SchedulingEventPublisher publishes appointment lifecycle events
type SchedulingEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewSchedulingEventPublisher creates a new scheduling event publisher
func NewSchedulingEventPublisher(client *messaging.RabbitMQ, log *logger.Logger) (*SchedulingEventPublisher, error) {
	publisher, err := messaging.NewPublisher(client, messaging.ExchangeSchedulingEvents, "scheduling-service", log)
	if err != nil {
		return nil, err
	}
	return &SchedulingEventPublisher{publisher: publisher, logger: log}, nil
}

func (p *SchedulingEventPublisher) publish(ctx context.Context, eventType string, a *repository.Appointment) {
	event := messaging.AppointmentEvent{
		AppointmentID:     a.ID,
		AppointmentNumber: a.AppointmentNumber,
		PatientID:         a.PatientID,
		DoctorID:          a.DoctorID,
		ScheduledAt:       a.ScheduledAt,
		Status:            a.Status,
		TenantID:          a.TenantID,
	}

	if err := p.publisher.Publish(ctx, eventType, event); err != nil {
		p.logger.WithError(err).Error().
			Str("appointment_id", a.ID).
			Str("event_type", eventType).
			Msg("Failed to publish appointment event")
	}
}

// PublishScheduled publishes a scheduling.appointment.scheduled event
func (p *SchedulingEventPublisher) PublishScheduled(ctx context.Context, a *repository.Appointment) {
	p.publish(ctx, messaging.EventAppointmentScheduled, a)
}

// PublishUpdated publishes a scheduling.appointment.updated event
func (p *SchedulingEventPublisher) PublishUpdated(ctx context.Context, a *repository.Appointment) {
	p.publish(ctx, messaging.EventAppointmentUpdated, a)
}

// PublishCancelled publishes a scheduling.appointment.cancelled event
func (p *SchedulingEventPublisher) PublishCancelled(ctx context.Context, a *repository.Appointment) {
	p.publish(ctx, messaging.EventAppointmentCancelled, a)
}
