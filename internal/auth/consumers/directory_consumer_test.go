package consumers

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentora/dentora-backend/internal/auth/repository"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/messaging"
	"github.com/dentora/dentora-backend/pkg/testutil"
)

func newTestHandler(t *testing.T) (*DirectoryEventHandler, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewDirectoryRepository(mockDB.DB)
	handler := NewDirectoryEventHandler(repo, logger.New("test", "test"))
	return handler, mockDB
}

func mustEvent(t *testing.T, eventType string, data interface{}) *messaging.Event {
	t.Helper()
	event, err := messaging.NewEvent(eventType, "users-service", "", data)
	require.NoError(t, err)
	return event
}

func TestHandleEvent_UserCreated(t *testing.T) {
	handler, mockDB := newTestHandler(t)
	defer mockDB.Close()

	mockDB.ExpectExec("INSERT INTO public.login_directory").
		WithArgs("jane@clinic.test", "user-1", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := mustEvent(t, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID:   "user-1",
		Email:    "jane@clinic.test",
		Role:     "doctor",
		TenantID: "tenant-1",
	})

	err := handler.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestHandleEvent_UserCreated_MissingTenant(t *testing.T) {
	handler, mockDB := newTestHandler(t)
	defer mockDB.Close()

	event := mustEvent(t, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID: "user-1",
		Email:  "jane@clinic.test",
	})

	// No exec expected: the entry must never land without a tenant.
	err := handler.HandleEvent(context.Background(), event)
	assert.Error(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestHandleEvent_UserUpdated_EmailChanged(t *testing.T) {
	handler, mockDB := newTestHandler(t)
	defer mockDB.Close()

	mockDB.ExpectExec("UPDATE public.login_directory SET email = $2").
		WithArgs("old@clinic.test", "new@clinic.test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := mustEvent(t, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
		UserID:   "user-1",
		OldEmail: "old@clinic.test",
		NewEmail: "new@clinic.test",
		TenantID: "tenant-1",
	})

	err := handler.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestHandleEvent_UserUpdated_EmailUnchanged(t *testing.T) {
	handler, mockDB := newTestHandler(t)
	defer mockDB.Close()

	event := mustEvent(t, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
		UserID:   "user-1",
		OldEmail: "same@clinic.test",
		NewEmail: "same@clinic.test",
		TenantID: "tenant-1",
	})

	err := handler.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestHandleEvent_UserDeleted(t *testing.T) {
	handler, mockDB := newTestHandler(t)
	defer mockDB.Close()

	mockDB.ExpectExec("DELETE FROM public.login_directory WHERE user_id = $1").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := mustEvent(t, messaging.EventUserDeleted, messaging.UserDeletedEvent{
		UserID:   "user-1",
		Email:    "jane@clinic.test",
		TenantID: "tenant-1",
	})

	err := handler.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestHandleEvent_UnknownType(t *testing.T) {
	handler, mockDB := newTestHandler(t)
	defer mockDB.Close()

	event := mustEvent(t, "user.sneezed", map[string]string{"user_id": "user-1"})

	err := handler.HandleEvent(context.Background(), event)
	assert.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}
