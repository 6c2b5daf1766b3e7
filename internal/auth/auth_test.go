package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	keys, err := NewKeys("test-secret")
	require.NoError(t, err)

	token, err := keys.GenerateToken(42, "alice", RoleUser)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := keys.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, RoleUser, claims.Role)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestParseTokenWrongSecret(t *testing.T) {
	keys, err := NewKeys("secret-one")
	require.NoError(t, err)
	other, err := NewKeys("secret-two")
	require.NoError(t, err)

	token, err := keys.GenerateToken(1, "bob", RoleAdmin)
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	keys, err := NewKeys("test-secret")
	require.NoError(t, err)

	_, err = keys.ParseToken("not-a-token")
	require.Error(t, err)
}

func TestNewKeysEmptySecret(t *testing.T) {
	_, err := NewKeys("")
	require.Error(t, err)
}

func TestUserIDBadSubject(t *testing.T) {
	c := Claims{}
	c.Subject = "not-a-number"
	_, err := c.UserID()
	require.Error(t, err)
}
