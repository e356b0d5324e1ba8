package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ContextKey is the key type for request-scoped values.
type ContextKey string

// Context keys for various values
const (
	// SubjectContextKey is the context key for the authenticated token subject
	SubjectContextKey ContextKey = "subject"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of characters in a generated trace ID
	TraceIDLength = 21
)

// traceAlphabet keeps trace IDs safe in headers, URLs and log queries.
const traceAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// SetTraceID adds a trace ID to the context. An incoming ID, such as one
// forwarded in X-Request-ID, is kept when it is non-empty.
func SetTraceID(ctx context.Context, incoming string) context.Context {
	traceID := incoming
	if traceID == "" {
		traceID = generateTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// SetSubject stores the authenticated token subject in the context.
func SetSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectContextKey, subject)
}

// GetSubject returns the authenticated token subject, if any.
func GetSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectContextKey).(string)
	return subject, ok && subject != ""
}

func generateTraceID() string {
	id, err := gonanoid.Generate(traceAlphabet, TraceIDLength)
	if err == nil {
		return id
	}

	slog.Error("failed to generate trace ID, falling back to hex", slog.String("error", err.Error()))
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
