package shared

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGetTraceID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traceID := GetTraceID(SetTraceID(ctx, ""))
	assert.Len(t, traceID, TraceIDLength)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-z]+$`), traceID)

	assert.Equal(t, "req-123", GetTraceID(SetTraceID(ctx, "req-123")))
}

func TestTraceIDsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GetTraceID(SetTraceID(context.Background(), ""))
		assert.False(t, seen[id], "duplicate trace ID %s", id)
		seen[id] = true
	}
}

func TestSubject(t *testing.T) {
	t.Parallel()

	_, ok := GetSubject(context.Background())
	assert.False(t, ok)

	_, ok = GetSubject(SetSubject(context.Background(), ""))
	assert.False(t, ok)

	subject, ok := GetSubject(SetSubject(context.Background(), "billing-service"))
	assert.True(t, ok)
	assert.Equal(t, "billing-service", subject)
}
