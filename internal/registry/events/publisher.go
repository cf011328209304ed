package events

import (
	"context"

	"github.com/dentora/dentora-backend/internal/registry/repository"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/messaging"
)

// RegistryEventPublisher publishes patient and doctor lifecycle events
type RegistryEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewRegistryEventPublisher creates a new registry event publisher
func NewRegistryEventPublisher(client *messaging.RabbitMQ, log *logger.Logger) (*RegistryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(client, messaging.ExchangeRegistryEvents, "registry-service", log)
	if err != nil {
		return nil, err
	}
	return &RegistryEventPublisher{publisher: publisher, logger: log}, nil
}

// PublishPatientCreated publishes a registry.patient.created event
func (p *RegistryEventPublisher) PublishPatientCreated(ctx context.Context, patient *repository.Patient) {
	event := messaging.PatientCreatedEvent{
		PatientID: patient.ID,
		FirstName: patient.FirstName,
		LastName:  patient.LastName,
		TenantID:  patient.TenantID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPatientCreated, event); err != nil {
		p.logger.WithError(err).Error().Str("patient_id", patient.ID).Msg("Failed to publish patient.created event")
	}
}

// PublishPatientUpdated publishes a registry.patient.updated event
func (p *RegistryEventPublisher) PublishPatientUpdated(ctx context.Context, patient *repository.Patient) {
	event := messaging.PatientCreatedEvent{
		PatientID: patient.ID,
		FirstName: patient.FirstName,
		LastName:  patient.LastName,
		TenantID:  patient.TenantID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPatientUpdated, event); err != nil {
		p.logger.WithError(err).Error().Str("patient_id", patient.ID).Msg("Failed to publish patient.updated event")
	}
}

// PublishDoctorCreated publishes a registry.doctor.created event
func (p *RegistryEventPublisher) PublishDoctorCreated(ctx context.Context, doctor *repository.Doctor) {
	event := messaging.DoctorCreatedEvent{
		DoctorID:      doctor.ID,
		FirstName:     doctor.FirstName,
		LastName:      doctor.LastName,
		Specialty:     doctor.Specialty,
		LicenseNumber: doctor.LicenseNumber,
		TenantID:      doctor.TenantID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventDoctorCreated, event); err != nil {
		p.logger.WithError(err).Error().Str("doctor_id", doctor.ID).Msg("Failed to publish doctor.created event")
	}
}
