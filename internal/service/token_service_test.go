package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims *models.JWTClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func registrarClaims(issuer string, expiresAt time.Time) *models.JWTClaims {
	return &models.JWTClaims{
		UserID: "u1",
		Role:   models.RoleRegistrar,
		Email:  "registrar@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "idp"})
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), registrarClaims("idp", time.Now().Add(time.Hour)))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleRegistrar, claims.Role)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "idp"})
	cases := map[string]string{
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), registrarClaims("idp", time.Now().Add(time.Hour))),
		"expired":      signToken(t, jwt.SigningMethodHS256, []byte("secret"), registrarClaims("idp", time.Now().Add(-time.Minute))),
		"wrong issuer": signToken(t, jwt.SigningMethodHS256, []byte("secret"), registrarClaims("someone", time.Now().Add(time.Hour))),
		"other alg":    signToken(t, jwt.SigningMethodHS512, []byte("secret"), registrarClaims("idp", time.Now().Add(time.Hour))),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
		})
	}
}

func TestValidateTokenRequiresRole(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	claims := registrarClaims("", time.Now().Add(time.Hour))
	claims.Role = ""

	_, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, []byte("secret"), claims))
	require.Error(t, err)
}
