package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-passphrase")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-passphrase", hash)

	assert.True(t, VerifyPassword("s3cret-passphrase", hash))
	assert.False(t, VerifyPassword("wrong", hash))
	assert.False(t, VerifyPassword("s3cret-passphrase", "not-a-bcrypt-hash"))
}

func TestTokenRoundTrip(t *testing.T) {
	Init("unit-test-secret", time.Hour)

	token, err := GenerateToken(42, "alice")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	Init("unit-test-secret", time.Hour)

	_, err := ParseToken("not.a.jwt")
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	Init("unit-test-secret", -time.Minute)

	token, err := GenerateToken(42, "alice")
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}
