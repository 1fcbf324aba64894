package jwtutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *JWTConfig {
	return &JWTConfig{
		AccessSigningKey:  "access-test-key",
		AccessExpiration:  15 * time.Minute,
		RefreshSigningKey: "refresh-test-key",
		RefreshExpiration: 7 * 24 * time.Hour,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	util := NewJWTUtil(testConfig())

	tenantID := uint(42)
	token, err := util.GenerateAccessToken("alice@acme.test", 7, &tenantID, []string{"TENANT_ADMIN"})
	require.NoError(t, err)

	claims, err := util.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@acme.test", claims.Email)
	assert.Equal(t, uint(7), claims.UserID)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, uint(42), *claims.TenantID)
	assert.Equal(t, []string{"TENANT_ADMIN"}, claims.Roles)
}

func TestAccessTokenNilTenant(t *testing.T) {
	util := NewJWTUtil(testConfig())

	token, err := util.GenerateAccessToken("root@platform.test", 1, nil, []string{"SUPER_ADMIN"})
	require.NoError(t, err)

	claims, err := util.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Nil(t, claims.TenantID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	util := NewJWTUtil(testConfig())

	token, err := util.GenerateRefreshToken(7)
	require.NoError(t, err)

	claims, err := util.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
}

func TestExpiredAccessToken(t *testing.T) {
	cfg := testConfig()
	cfg.AccessExpiration = -1 * time.Minute
	util := NewJWTUtil(cfg)

	token, err := util.GenerateAccessToken("alice@acme.test", 7, nil, nil)
	require.NoError(t, err)

	_, err = util.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredCredential)
}

func TestTamperedToken(t *testing.T) {
	util := NewJWTUtil(testConfig())

	token, err := util.GenerateAccessToken("alice@acme.test", 7, nil, nil)
	require.NoError(t, err)

	_, err = util.ValidateAccessToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestSecretsAreIndependent(t *testing.T) {
	util := NewJWTUtil(testConfig())

	// An access token must never validate as a refresh token: the two kinds
	// are signed with different secrets.
	access, err := util.GenerateAccessToken("alice@acme.test", 7, nil, nil)
	require.NoError(t, err)
	_, err = util.ValidateRefreshToken(access)
	assert.Error(t, err)

	refresh, err := util.GenerateRefreshToken(7)
	require.NoError(t, err)
	_, err = util.ValidateAccessToken(refresh)
	assert.Error(t, err)
}

func TestMissingConfig(t *testing.T) {
	util := NewJWTUtil(nil)

	_, err := util.GenerateAccessToken("alice@acme.test", 7, nil, nil)
	assert.Error(t, err)
	_, err = util.ValidateAccessToken("anything")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredential))
}
