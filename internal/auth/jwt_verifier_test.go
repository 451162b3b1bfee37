package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenxcards/cards-api/internal/config"
)

const testSecret = "thisisasecretkeythatis32charslong!!"

func newTestVerifier(t *testing.T) *hmacVerifier {
	t.Helper()

	v, err := NewVerifier(config.AuthConfig{JWTSecret: testSecret}, nil)
	require.NoError(t, err)

	return v.(*hmacVerifier)
}

// signToken issues a token the way the identity provider would.
func signToken(t *testing.T, secret string, userID uuid.UUID, issuedAt time.Time, lifetime time.Duration) string {
	t.Helper()

	claims := jwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(lifetime)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return signed
}

func TestNewVerifier_RejectsShortSecret(t *testing.T) {
	_, err := NewVerifier(config.AuthConfig{JWTSecret: "tooshort"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestValidateToken_Valid(t *testing.T) {
	v := newTestVerifier(t)
	userID := uuid.New()
	token := signToken(t, testSecret, userID, time.Now(), time.Hour)

	claims, err := v.ValidateToken(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Expired(t *testing.T) {
	v := newTestVerifier(t)
	// Issued well in the past so the clock skew allowance cannot save it.
	token := signToken(t, testSecret, uuid.New(), time.Now().Add(-2*time.Hour), time.Hour)

	claims, err := v.ValidateToken(context.Background(), token)

	require.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	v := newTestVerifier(t)
	token := signToken(t, "anothersecretthatisalso32charslong!", uuid.New(), time.Now(), time.Hour)

	claims, err := v.ValidateToken(context.Background(), token)

	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestValidateToken_Malformed(t *testing.T) {
	v := newTestVerifier(t)

	claims, err := v.ValidateToken(context.Background(), "not.a.jwt")

	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestValidateToken_Missing(t *testing.T) {
	v := newTestVerifier(t)

	claims, err := v.ValidateToken(context.Background(), "")

	require.ErrorIs(t, err, ErrMissingToken)
	assert.Nil(t, claims)
}

func TestValidateToken_MissingUserIDClaim(t *testing.T) {
	v := newTestVerifier(t)
	token := signToken(t, testSecret, uuid.Nil, time.Now(), time.Hour)

	claims, err := v.ValidateToken(context.Background(), token)

	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestValidateToken_ToleratesClockSkew(t *testing.T) {
	v := newTestVerifier(t)
	// Expired one minute ago, within the two-minute skew allowance.
	v.timeFunc = func() time.Time { return time.Now().Add(time.Minute) }
	token := signToken(t, testSecret, uuid.New(), time.Now(), time.Second)

	_, err := v.ValidateToken(context.Background(), token)

	require.NoError(t, err)
}
