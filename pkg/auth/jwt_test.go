package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "rabbithole-backend"
)

func newTestPair(t *testing.T) (*JWTGenerator, *JWTValidator) {
	t.Helper()
	gen, err := NewJWTGenerator(testSecret, testIssuer, time.Hour)
	require.NoError(t, err)
	val, err := NewJWTValidator(testSecret, testIssuer)
	require.NoError(t, err)
	return gen, val
}

func TestValidateTokenRoundTrip(t *testing.T) {
	gen, val := newTestPair(t)

	token, err := gen.GenerateToken("user_123", "user@example.com")
	require.NoError(t, err)

	claims, err := val.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestValidateTokenBearerPrefix(t *testing.T) {
	gen, val := newTestPair(t)

	token, err := gen.GenerateToken("user_123", "")
	require.NoError(t, err)

	claims, err := val.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user_123", claims.UserID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	gen, err := NewJWTGenerator("other-secret", testIssuer, time.Hour)
	require.NoError(t, err)
	_, val := newTestPair(t)

	token, err := gen.GenerateToken("user_123", "")
	require.NoError(t, err)

	_, err = val.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	gen, err := NewJWTGenerator(testSecret, testIssuer, -time.Minute)
	require.NoError(t, err)
	_, val := newTestPair(t)

	token, err := gen.GenerateToken("user_123", "")
	require.NoError(t, err)

	_, err = val.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	gen, err := NewJWTGenerator(testSecret, "someone-else", time.Hour)
	require.NoError(t, err)
	_, val := newTestPair(t)

	token, err := gen.GenerateToken("user_123", "")
	require.NoError(t, err)

	_, err = val.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateTokenRejectsMissingUserID(t *testing.T) {
	_, val := newTestPair(t)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = val.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateTokenRejectsEmpty(t *testing.T) {
	_, val := newTestPair(t)

	_, err := val.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestUserContextRoundTrip(t *testing.T) {
	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "user_123", Email: "a@b.c"})

	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user_123", user.UserID)

	_, err = GetUserFromContext(context.Background())
	assert.Error(t, err)
}
