package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	s := NewSigner("secret", time.Hour)

	token, claims, err := s.GenerateAccessToken("user-1", 3)
	require.NoError(t, err)

	got, err := s.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, uint(3), got.TokenVersion)
	assert.Equal(t, claims.ID, got.ID)
}

func TestTokensAreUnique(t *testing.T) {
	s := NewSigner("secret", time.Hour)

	a, _, err := s.GenerateAccessToken("user-1", 0)
	require.NoError(t, err)
	b, _, err := s.GenerateAccessToken("user-1", 0)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, _, err := NewSigner("secret", time.Hour).GenerateAccessToken("user-1", 0)
	require.NoError(t, err)

	_, err = NewSigner("other", time.Hour).VerifyJWT(token)
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	s := NewSigner("secret", time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	token, _, err := s.GenerateAccessToken("user-1", 0)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.VerifyJWT(token)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := NewSigner("secret", time.Hour).VerifyJWT("not-a-token")
	assert.Error(t, err)
}
