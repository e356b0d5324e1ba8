package auth

import (
	"context"
	"time"
)

// JWTService issues and validates the bearer tokens accepted by the status,
// queue-health and enqueue endpoints. The subject names the calling user or
// service.
type JWTService interface {
	// GenerateToken creates a signed access token for subject.
	GenerateToken(ctx context.Context, subject string) (string, error)

	// ValidateToken validates the token string and extracts its claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of an access token.
type Claims struct {
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
