package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// TriggerAuthenticator checks the shared secret presented to the on-demand
// reminder trigger. The configured secret may be stored in plain text or as a
// bcrypt hash.
type TriggerAuthenticator struct {
	secret     string
	hashed     bool
	production bool
}

// NewTriggerAuthenticator creates an authenticator for secret. With an empty
// secret, production environments refuse every call and other environments
// allow every call.
func NewTriggerAuthenticator(secret string, production bool) *TriggerAuthenticator {
	return &TriggerAuthenticator{
		secret:     secret,
		hashed:     isBcryptHash(secret),
		production: production,
	}
}

// Configured reports whether a secret is set.
func (a *TriggerAuthenticator) Configured() bool {
	return a.secret != ""
}

// Authenticate checks presented against the configured secret.
// It returns ErrSecretNotConfigured when the trigger must fail closed,
// ErrMissingToken when no secret was presented, and ErrInvalidSecret on mismatch.
func (a *TriggerAuthenticator) Authenticate(presented string) error {
	if a.secret == "" {
		if a.production {
			return ErrSecretNotConfigured
		}
		return nil
	}

	if presented == "" {
		return ErrMissingToken
	}

	if a.hashed {
		if bcrypt.CompareHashAndPassword([]byte(a.secret), []byte(presented)) != nil {
			return ErrInvalidSecret
		}
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(a.secret), []byte(presented)) != 1 {
		return ErrInvalidSecret
	}
	return nil
}

// HashSecret returns the bcrypt hash of secret for storage in configuration.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isBcryptHash(s string) bool {
	return len(s) == 60 &&
		(strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
