package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/bankfolio/src/config"
)

func setupTestConfig() {
	config.Cfg = &config.AppConfig{
		JWTSecret:         "test-secret-key-that-is-long-enough-for-hs256",
		AccessTokenExpiry: time.Hour,
	}
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	setupTestConfig()
	svc := NewAuthService(config.Cfg.JWTSecret)

	token, err := svc.GenerateToken("user-1", 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, organizationID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, int64(42), organizationID)
}

func TestAuthService_RejectsWrongSecret(t *testing.T) {
	setupTestConfig()
	svc := NewAuthService(config.Cfg.JWTSecret)

	token, err := svc.GenerateToken("user-1", 42)
	require.NoError(t, err)

	other := NewAuthService("a-different-secret-key-also-long-enough!")
	_, _, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthService_RejectsGarbage(t *testing.T) {
	setupTestConfig()
	svc := NewAuthService(config.Cfg.JWTSecret)

	_, _, err := svc.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}
