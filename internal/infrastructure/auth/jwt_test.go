package auth

import (
	"testing"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-at-least-32-chars",
		Expiration: 15 * time.Minute,
		Issuer:     "test-issuer",
	})
}

func TestNewJWTService_DefaultExpiration(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "s"})
	assert.Equal(t, 12*time.Hour, svc.expiration)
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()

	issued, err := svc.Generate(GenerateTokenInput{UserID: "u1", Name: "Ana", Role: "WAITER"})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.NotEmpty(t, issued.ID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.Validate(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, "WAITER", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, "test-issuer", claims.Issuer)
}

func TestGenerate_UniqueIDs(t *testing.T) {
	svc := newTestJWTService()
	a, err := svc.Generate(GenerateTokenInput{UserID: "u1"})
	require.NoError(t, err)
	b, err := svc.Generate(GenerateTokenInput{UserID: "u1"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGenerate_MissingUserID(t *testing.T) {
	_, err := newTestJWTService().Generate(GenerateTokenInput{})
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestValidate_Failures(t *testing.T) {
	svc := newTestJWTService()

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		svc.now = func() time.Time { return past }
		issued, err := svc.Generate(GenerateTokenInput{UserID: "u1"})
		svc.now = time.Now
		require.NoError(t, err)

		_, err = svc.Validate(issued.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-at-least-32-chars", Expiration: time.Minute})
		issued, err := other.Generate(GenerateTokenInput{UserID: "u1"})
		require.NoError(t, err)

		_, err = svc.Validate(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no user id", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
		})
		signed, err := token.SignedString(svc.secret)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, ErrMissingUserID)
	})
}
