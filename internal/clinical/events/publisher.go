package events

import (
	"context"

	"github.com/dentora/dentora-backend/internal/clinical/repository"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/messaging"
)

// ClinicalEventPublisher publishes clinical record events
type ClinicalEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewClinicalEventPublisher creates a new clinical event publisher
func NewClinicalEventPublisher(client *messaging.RabbitMQ, log *logger.Logger) (*ClinicalEventPublisher, error) {
	publisher, err := messaging.NewPublisher(client, messaging.ExchangeClinicalEvents, "clinical-service", log)
	if err != nil {
		return nil, err
	}
	return &ClinicalEventPublisher{publisher: publisher, logger: log}, nil
}

// PublishPrescriptionIssued publishes a clinical.prescription.issued event
func (p *ClinicalEventPublisher) PublishPrescriptionIssued(ctx context.Context, rx *repository.Prescription) {
	event := messaging.PrescriptionIssuedEvent{
		PrescriptionID:     rx.ID,
		PrescriptionNumber: rx.PrescriptionNumber,
		PatientID:          rx.PatientID,
		DoctorID:           rx.DoctorID,
		TenantID:           rx.TenantID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPrescriptionIssued, event); err != nil {
		p.logger.WithError(err).Error().Str("prescription_id", rx.ID).Msg("Failed to publish prescription.issued event")
	}
}
