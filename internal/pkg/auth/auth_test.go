package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/musicschool/internal/app/models"
)

func testService(exp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "test-secret", AccessTokenExp: exp, TokenIssuer: "musicschool"})
}

func TestGenerateAndValidate(t *testing.T) {
	svc := testService(time.Hour)
	student := &models.Student{ID: "07", Login: "ana", Role: models.RoleStudent}

	token, expiresIn, err := svc.GenerateAccessToken(student)
	require.NoError(t, err)
	assert.Equal(t, 3600, expiresIn)

	claims, err := svc.ValidateAndExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "07", claims.UserID)
	assert.Equal(t, "ana", claims.Login)
	assert.False(t, claims.IsAdmin())
}

func TestExpiredToken(t *testing.T) {
	svc := testService(-time.Minute)
	token, _, err := svc.GenerateAccessToken(&models.Student{ID: "07", Login: "ana", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenFromOtherSecret(t *testing.T) {
	token, _, err := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "musicschool"}).
		GenerateAccessToken(&models.Student{ID: "07", Login: "ana", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = testService(time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWithUnknownRole(t *testing.T) {
	claims := &Claims{
		UserID: "07",
		Login:  "ana",
		Role:   "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "musicschool",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = testService(time.Hour).ValidateAndExtractClaims(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	token, err = ExtractBearerToken("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("violao123")
	require.NoError(t, err)
	assert.NotEqual(t, "violao123", hash)
	assert.True(t, CheckPassword(hash, "violao123"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
