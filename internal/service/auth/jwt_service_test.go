package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/boardnotify/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-that-is-32-chars-long"

func newTestService(t *testing.T, now func() time.Time) *hmacJWTService {
	t.Helper()
	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	impl := svc.(*hmacJWTService)
	impl.timeFunc = now
	return impl
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)
}

func TestGenerateAndValidate(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return fixed })

	token, err := svc.GenerateToken(context.Background(), "billing-service")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "billing-service", claims.Subject)
	assert.Equal(t, fixed.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixed.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	_, err = svc.GenerateToken(context.Background(), "")
	assert.Error(t, err)
}

func TestValidateToken_Failures(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuing := newTestService(t, func() time.Time { return fixed })
	token, err := issuing.GenerateToken(context.Background(), "ops")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		later := newTestService(t, func() time.Time { return fixed.Add(2 * time.Hour) })
		_, err := later.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		t.Parallel()
		earlier := newTestService(t, func() time.Time { return fixed.Add(-time.Hour) })
		_, err := earlier.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		other, err := NewJWTService(config.AuthConfig{JWTSecret: "another-secret-that-is-32-chars-long!", TokenLifetimeMinutes: 60})
		require.NoError(t, err)
		other.(*hmacJWTService).timeFunc = func() time.Time { return fixed }
		_, err = other.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		_, err := issuing.ValidateToken(context.Background(), "not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		_, err := issuing.ValidateToken(context.Background(), "")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		t.Parallel()
		claims := jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(fixed.Add(time.Hour)),
		}
		foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = issuing.ValidateToken(context.Background(), foreign)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
