package mocks

import (
	"context"

	"github.com/phrazzld/boardnotify/internal/service/auth"
)

// MockJWTService is an auth.JWTService whose behavior is set per test.
// Without function fields it returns the static Token, Claims and errors.
type MockJWTService struct {
	GenerateTokenFn func(ctx context.Context, subject string) (string, error)
	ValidateTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)

	Token       string
	Err         error
	Claims      *auth.Claims
	ValidateErr error
}

var _ auth.JWTService = (*MockJWTService)(nil)

func (m *MockJWTService) GenerateToken(ctx context.Context, subject string) (string, error) {
	if m.GenerateTokenFn == nil {
		return m.Token, m.Err
	}
	return m.GenerateTokenFn(ctx, subject)
}

func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.ValidateTokenFn == nil {
		return m.Claims, m.ValidateErr
	}
	return m.ValidateTokenFn(ctx, tokenString)
}
