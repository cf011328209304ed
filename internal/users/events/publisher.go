package events

import (
	"context"

	"github.com/dentora/dentora-backend/internal/users/repository"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/messaging"
)

// UserEventPublisher publishes staff account lifecycle events
type UserEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewUserEventPublisher creates a new user event publisher
func NewUserEventPublisher(client *messaging.RabbitMQ, log *logger.Logger) (*UserEventPublisher, error) {
	publisher, err := messaging.NewPublisher(client, messaging.ExchangeUserEvents, "users-service", log)
	if err != nil {
		return nil, err
	}
	return &UserEventPublisher{publisher: publisher, logger: log}, nil
}

// PublishUserCreated publishes a user.created event
func (p *UserEventPublisher) PublishUserCreated(ctx context.Context, user *repository.User) {
	event := messaging.UserCreatedEvent{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		TenantID:  user.TenantID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventUserCreated, event); err != nil {
		p.logger.WithError(err).Error().Str("user_id", user.ID).Msg("Failed to publish user.created event")
	}
}

// PublishUserUpdated publishes a user.updated event
func (p *UserEventPublisher) PublishUserUpdated(ctx context.Context, user *repository.User, oldEmail string) {
	event := messaging.UserUpdatedEvent{
		UserID:    user.ID,
		OldEmail:  oldEmail,
		NewEmail:  user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		TenantID:  user.TenantID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventUserUpdated, event); err != nil {
		p.logger.WithError(err).Error().Str("user_id", user.ID).Msg("Failed to publish user.updated event")
	}
}

// PublishUserDeleted publishes a user.deleted event
func (p *UserEventPublisher) PublishUserDeleted(ctx context.Context, userID, email, tenantID string) {
	event := messaging.UserDeletedEvent{
		UserID:   userID,
		Email:    email,
		TenantID: tenantID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventUserDeleted, event); err != nil {
		p.logger.WithError(err).Error().Str("user_id", userID).Msg("Failed to publish user.deleted event")
	}
}

// PublishRoleChanged publishes a user.role.changed event
func (p *UserEventPublisher) PublishRoleChanged(ctx context.Context, user *repository.User, oldRole string) {
	event := map[string]string{
		"user_id":   user.ID,
		"tenant_id": user.TenantID,
		"old_role":  oldRole,
		"new_role":  user.Role,
	}

	if err := p.publisher.Publish(ctx, messaging.EventUserRoleChanged, event); err != nil {
		p.logger.WithError(err).Error().Str("user_id", user.ID).Msg("Failed to publish user.role.changed event")
	}
}
