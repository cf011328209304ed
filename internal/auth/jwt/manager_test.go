package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentora/dentora-backend/pkg/config"
	"github.com/dentora/dentora-backend/pkg/errors"
)

func newTestManager(accessExpiry time.Duration) *Manager {
	return NewManager(&config.JWTConfig{
		Secret:        "test-secret-at-least-32-characters-long",
		AccessExpiry:  accessExpiry,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "clinic-api-test",
	})
}

func testUser() *UserInfo {
	return &UserInfo{
		ID:       "user-123",
		Email:    "dr.house@clinic.test",
		Name:     "Gregory House",
		Role:     "doctor",
		TenantID: "tenant-abc",
	}
}

func TestGenerateTokenPair(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	pair, err := manager.GenerateTokenPair(testUser(), "session-1")
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.ExpiresAt, 5*time.Second)
}

func TestValidateAccessToken_RoundTrip(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	pair, err := manager.GenerateTokenPair(testUser(), "session-1")
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "dr.house@clinic.test", claims.Email)
	assert.Equal(t, "doctor", claims.Role)
	assert.Equal(t, "tenant-abc", claims.TenantID)
	assert.Equal(t, "clinic-api-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateRefreshToken_CarriesSessionAndTenant(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	pair, err := manager.GenerateTokenPair(testUser(), "session-42")
	require.NoError(t, err)

	claims, err := manager.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "session-42", claims.SessionID)
	assert.Equal(t, "tenant-abc", claims.TenantID)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	manager := newTestManager(-1 * time.Minute)

	pair, err := manager.GenerateTokenPair(testUser(), "session-1")
	require.NoError(t, err)

	_, err = manager.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, errors.ErrTokenExpired)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	manager := newTestManager(15 * time.Minute)
	other := NewManager(&config.JWTConfig{
		Secret:        "a-completely-different-secret-value-here",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "clinic-api-test",
	})

	pair, err := manager.GenerateTokenPair(testUser(), "session-1")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, errors.ErrTokenInvalid)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	_, err := manager.ValidateAccessToken("not.a.token")
	assert.ErrorIs(t, err, errors.ErrTokenInvalid)
}

func TestValidateAccessToken_RefreshTokenRejectedAsAccess(t *testing.T) {
	// A refresh token parses structurally but must not carry access claims.
	manager := newTestManager(15 * time.Minute)

	pair, err := manager.GenerateTokenPair(testUser(), "session-1")
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
	assert.Empty(t, claims.Email)
}
