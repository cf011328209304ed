package events

import (
	"context"

	"github.com/dentora/dentora-backend/internal/auth/repository"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/messaging"
)

// TenantEventPublisher publishes clinic lifecycle events
type TenantEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewTenantEventPublisher creates a new tenant event publisher
func NewTenantEventPublisher(client *messaging.RabbitMQ, log *logger.Logger) (*TenantEventPublisher, error) {
	publisher, err := messaging.NewPublisher(client, messaging.ExchangeTenantEvents, "auth-service", log)
	if err != nil {
		return nil, err
	}
	return &TenantEventPublisher{publisher: publisher, logger: log}, nil
}

// PublishTenantRegistered publishes a tenant.registered event
func (p *TenantEventPublisher) PublishTenantRegistered(ctx context.Context, clinic *repository.Tenant, adminEmail string) {
	event := messaging.TenantRegisteredEvent{
		TenantID:   clinic.ID,
		Name:       clinic.Name,
		AdminEmail: adminEmail,
	}

	if err := p.publisher.Publish(ctx, messaging.EventTenantRegistered, event); err != nil {
		p.logger.WithError(err).Error().Str("tenant_id", clinic.ID).Msg("Failed to publish tenant.registered event")
	}
}

// PublishTenantDeactivated publishes a tenant.deactivated event
func (p *TenantEventPublisher) PublishTenantDeactivated(ctx context.Context, tenantID string) {
	event := map[string]string{"tenant_id": tenantID}

	if err := p.publisher.Publish(ctx, messaging.EventTenantDeactivated, event); err != nil {
		p.logger.WithError(err).Error().Str("tenant_id", tenantID).Msg("Failed to publish tenant.deactivated event")
	}
}
