package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()
	claims := models.JWTClaims{
		UserID: "admin-1",
		Role:   models.RoleAdmin,
		Email:  "admin@academy.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := NewTokenService("secret")

	claims, err := svc.ValidateToken(signToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestValidateTokenRejectsBadTokens(t *testing.T) {
	svc := NewTokenService("secret")
	tokens := map[string]string{
		"wrong secret": signToken(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)),
		"expired":      signToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(-time.Hour)),
		"wrong method": signToken(t, "secret", jwt.SigningMethodHS512, time.Now().Add(time.Hour)),
		"garbage":      "not-a-token",
	}
	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
		})
	}
}
