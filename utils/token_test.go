package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(42, "secret")
	require.NoError(t, err)

	id, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestParseToken_Rejects(t *testing.T) {
	good, err := GenerateToken(42, "secret")
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, tc := range map[string]struct{ token, secret string }{
		"wrong secret": {good, "other"},
		"expired":      {expired, "secret"},
		"no user":      {noUser, "secret"},
		"garbage":      {"not.a.jwt", "secret"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tc.token, tc.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
