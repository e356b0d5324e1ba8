package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/boardnotify/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, logger.ParseLevel(tc.input))
		})
	}
}

func TestNew_WritesJSONAtLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.New(&buf, "warn")

	l.Info("hidden message")
	l.Warn("visible message", "queue", "email")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "visible message", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "email", entry["queue"])
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.New(&buf, "debug").With("run_id", "abc")

	ctx := logger.WithLogger(context.Background(), l)
	assert.Same(t, l, logger.FromContext(ctx))

	// Without a stored logger the default is returned
	assert.Equal(t, slog.Default(), logger.FromContext(context.Background()))
}

func TestFromContextOrDefault(t *testing.T) {
	t.Parallel()

	fallback := logger.New(&bytes.Buffer{}, "info")
	stored := logger.New(&bytes.Buffer{}, "debug")

	//nolint:staticcheck // nil context is part of the contract
	assert.Same(t, fallback, logger.FromContextOrDefault(nil, fallback))
	assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	assert.Same(t, stored, logger.FromContextOrDefault(logger.WithLogger(context.Background(), stored), fallback))

	assert.Panics(t, func() { logger.WithLogger(context.Background(), nil) })
}
