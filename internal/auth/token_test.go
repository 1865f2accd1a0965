package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integrity-watch/report-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	token, expiresAt, err := tm.GenerateToken("65f1c0ffee0000000000beef", domain.RolePolice)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "65f1c0ffee0000000000beef", claims.Subject)
	assert.Equal(t, domain.RolePolice, claims.Role)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	token, _, err := tm.GenerateToken("user", domain.RoleCitizen)
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsOtherSecretAndMethod(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken("user", domain.RoleCitizen)
	require.NoError(t, err)
	_, err = NewTokenManager("two", 5).ParseToken(token)
	assert.Error(t, err)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		Role:             domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := hs512.SignedString([]byte("one"))
	require.NoError(t, err)
	_, err = NewTokenManager("one", 5).ParseToken(signed)
	assert.Error(t, err)
}

func TestOpaqueTokenDigest(t *testing.T) {
	raw, digest := NewOpaqueToken()
	assert.NotEmpty(t, raw)
	assert.Len(t, digest, 64)
	assert.Equal(t, digest, HashOpaqueToken(raw))
	assert.NotEqual(t, raw, digest)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "battery staple"))
}
