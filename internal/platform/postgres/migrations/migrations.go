// Package migrations embeds the engine's SQL schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// TableName is the goose version table used by this service.
const TableName = "boardnotify_schema_migrations"

//go:embed sql/*.sql
var files embed.FS

// Commands lists the supported migration commands.
var Commands = []string{"up", "down", "reset", "status", "version"}

// Run executes a goose command against db using the embedded migrations.
func Run(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "migrations"), slog.String("command", command))

	goose.SetBaseFS(files)
	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetTableName(TableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, "sql")
	case "down":
		err = goose.DownContext(ctx, db, "sql")
	case "reset":
		err = goose.ResetContext(ctx, db, "sql")
	case "status":
		err = goose.StatusContext(ctx, db, "sql")
	case "version":
		err = goose.VersionContext(ctx, db, "sql")
	default:
		return fmt.Errorf("unknown migration command: %s (expected one of %v)", command, Commands)
	}
	if err != nil {
		log.Error("migration command failed", slog.String("error", err.Error()))
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migration command completed")
	return nil
}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf forwards goose progress output at info level.
func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at error level without exiting so callers handle the failure.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}
