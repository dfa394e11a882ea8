package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/provexlabs/provex-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService() *AuthService {
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	return NewAuthService(cfg, nil)
}

func TestHashAndCheckPassword(t *testing.T) {
	svc := newAuthService()

	hash, err := svc.HashPassword("hunter42")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter42", hash)

	assert.NoError(t, svc.CheckPassword(hash, "hunter42"))
	assert.ErrorIs(t, svc.CheckPassword(hash, "hunter43"), ErrInvalidCredentials)
}

func signToken(t *testing.T, secret string, expiry time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "test-jti",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		UserID:   7,
		Username: "alice",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := newAuthService()

	claims, err := svc.ValidateToken(signToken(t, "test-secret", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "test-jti", claims.ID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := newAuthService()

	_, err := svc.ValidateToken(signToken(t, "other-secret", time.Hour))
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newAuthService()

	_, err := svc.ValidateToken(signToken(t, "test-secret", -time.Minute))
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService()

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
