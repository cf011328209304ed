package consumers

import (
	"context"
	"fmt"

	"github.com/dentora/dentora-backend/internal/auth/repository"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/messaging"
)

// DirectoryEventHandler keeps the login directory in sync with user
// events (testable without RabbitMQ)
type DirectoryEventHandler struct {
	directoryRepo *repository.DirectoryRepository
	logger        *logger.Logger
}

// NewDirectoryEventHandler creates a new handler
func NewDirectoryEventHandler(directoryRepo *repository.DirectoryRepository, log *logger.Logger) *DirectoryEventHandler {
	return &DirectoryEventHandler{
		directoryRepo: directoryRepo,
		logger:        log,
	}
}

// HandleEvent processes a user event and updates the login directory
func (h *DirectoryEventHandler) HandleEvent(ctx context.Context, event *messaging.Event) error {
	switch event.Type {
	case messaging.EventUserCreated:
		return h.handleUserCreated(ctx, event)
	case messaging.EventUserUpdated:
		return h.handleUserUpdated(ctx, event)
	case messaging.EventUserDeleted:
		return h.handleUserDeleted(ctx, event)
	default:
		h.logger.Warn().Str("event_type", event.Type).Msg("unknown event type received")
		return nil
	}
}

func (h *DirectoryEventHandler) handleUserCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		h.logger.Error().Err(err).Msg("failed to unmarshal user.created event")
		return err
	}

	if data.TenantID == "" {
		h.logger.Warn().
			Str("user_id", data.UserID).
			Str("email", data.Email).
			Msg("user.created event missing tenant id, skipping directory update")
		return fmt.Errorf("missing tenant id in user.created event")
	}

	entry := &repository.DirectoryEntry{
		Email:    data.Email,
		UserID:   data.UserID,
		TenantID: data.TenantID,
	}

	if err := h.directoryRepo.Upsert(ctx, entry); err != nil {
		h.logger.Error().Err(err).Str("email", data.Email).Msg("failed to upsert directory entry")
		return err
	}

	h.logger.Info().
		Str("user_id", data.UserID).
		Str("tenant_id", data.TenantID).
		Msg("login directory entry synced")
	return nil
}

func (h *DirectoryEventHandler) handleUserUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		h.logger.Error().Err(err).Msg("failed to unmarshal user.updated event")
		return err
	}

	if data.OldEmail == data.NewEmail {
		return nil
	}

	if err := h.directoryRepo.Rename(ctx, data.OldEmail, data.NewEmail); err != nil {
		h.logger.Error().Err(err).Str("user_id", data.UserID).Msg("failed to rename directory entry")
		return err
	}

	h.logger.Info().
		Str("user_id", data.UserID).
		Str("new_email", data.NewEmail).
		Msg("login directory entry renamed")
	return nil
}

func (h *DirectoryEventHandler) handleUserDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		h.logger.Error().Err(err).Msg("failed to unmarshal user.deleted event")
		return err
	}

	if err := h.directoryRepo.DeleteByUserID(ctx, data.UserID); err != nil {
		h.logger.Error().Err(err).Str("user_id", data.UserID).Msg("failed to delete directory entry")
		return err
	}

	h.logger.Info().Str("user_id", data.UserID).Msg("login directory entry removed")
	return nil
}

// DirectoryEventConsumer consumes user events to sync the login directory
type DirectoryEventConsumer struct {
	consumer *messaging.Consumer
	handler  *DirectoryEventHandler
	logger   *logger.Logger
}

// NewDirectoryEventConsumer creates a new directory event consumer
func NewDirectoryEventConsumer(rmq *messaging.RabbitMQ, directoryRepo *repository.DirectoryRepository, log *logger.Logger) (*DirectoryEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "auth-service.user-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	handler := NewDirectoryEventHandler(directoryRepo, log)

	consumer.RegisterHandler(messaging.EventUserCreated, handler.handleUserCreated)
	consumer.RegisterHandler(messaging.EventUserUpdated, handler.handleUserUpdated)
	consumer.RegisterHandler(messaging.EventUserDeleted, handler.handleUserDeleted)

	return &DirectoryEventConsumer{
		consumer: consumer,
		handler:  handler,
		logger:   log,
	}, nil
}

// Start starts consuming messages
func (c *DirectoryEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}
