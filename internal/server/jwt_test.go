package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndValidateToken(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := svc.GenerateToken("ci-runner")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ci-runner", claims.ClientID)
}

func TestShortSecretRejected(t *testing.T) {
	_, err := NewJWTService("tooshort", time.Hour)
	assert.Error(t, err)
}

func TestValidateTokenRejections(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken("")
	assert.Error(t, err)

	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)

	// A token signed with a different secret must not validate.
	other, err := NewJWTService("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)
	token, err := other.GenerateToken("intruder")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Millisecond)
	require.NoError(t, err)

	token, err := svc.GenerateToken("short-lived")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
