package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/boardnotify/internal/api/shared"
	"github.com/phrazzld/boardnotify/internal/mocks"
	"github.com/phrazzld/boardnotify/internal/platform/logger"
	"github.com/phrazzld/boardnotify/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		authHeader      string
		validateErr     error
		claims          *auth.Claims
		expectedStatus  int
		expectedSubject string
	}{
		{
			name:            "valid token",
			authHeader:      "Bearer valid-token",
			claims:          &auth.Claims{Subject: "billing-service"},
			expectedStatus:  http.StatusOK,
			expectedSubject: "billing-service",
		},
		{
			name:            "lowercase scheme",
			authHeader:      "bearer valid-token",
			claims:          &auth.Claims{Subject: "web"},
			expectedStatus:  http.StatusOK,
			expectedSubject: "web",
		},
		{
			name:           "missing auth header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid auth format",
			authHeader:     "InvalidFormat",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "basic scheme",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired token",
			authHeader:     "Bearer expired-token",
			validateErr:    auth.ErrExpiredToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			authHeader:     "Bearer invalid-token",
			validateErr:    auth.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unexpected validation error",
			authHeader:     "Bearer valid-token",
			validateErr:    errors.New("key store unavailable"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			jwtService := &mocks.MockJWTService{Claims: tc.claims, ValidateErr: tc.validateErr}
			var gotSubject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSubject, _ = shared.GetSubject(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/reminders/status", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			NewAuthMiddleware(jwtService).Authenticate(next).ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, tc.expectedSubject, gotSubject)
		})
	}
}

func TestRequireTriggerSecret(t *testing.T) {
	t.Parallel()

	hashed, err := auth.HashSecret("hashed-secret-value")
	require.NoError(t, err)

	tests := []struct {
		name       string
		secret     string
		production bool
		header     string
		wantStatus int
	}{
		{name: "matching secret", secret: "s3cret-value", header: "Bearer s3cret-value", wantStatus: http.StatusOK},
		{name: "wrong secret", secret: "s3cret-value", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "missing header", secret: "s3cret-value", wantStatus: http.StatusUnauthorized},
		{name: "bcrypt secret", secret: hashed, header: "Bearer hashed-secret-value", wantStatus: http.StatusOK},
		{name: "bcrypt mismatch", secret: hashed, header: "Bearer " + hashed, wantStatus: http.StatusUnauthorized},
		{name: "unconfigured in production", production: true, header: "Bearer anything", wantStatus: http.StatusInternalServerError},
		{name: "unconfigured in development", wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})
			guard := RequireTriggerSecret(auth.NewTriggerAuthenticator(tc.secret, tc.production))

			req := httptest.NewRequest(http.MethodPost, "/reminders/trigger", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			guard(next).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantStatus == http.StatusOK, called)
		})
	}
}

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	var traceID string
	var hasLogger bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		hasLogger = logger.FromContextOrDefault(r.Context(), nil) != nil
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	TraceMiddleware(nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Len(t, traceID, shared.TraceIDLength)
	assert.True(t, hasLogger)
	assert.Equal(t, traceID, rec.Header().Get("X-Trace-ID"))
}
