// Package main runs the notification service: the HTTP trigger and status
// endpoints, the email queue processor and the daily reminder generator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/phrazzld/boardnotify/internal/config"
	"github.com/phrazzld/boardnotify/internal/platform/logger"
	"github.com/phrazzld/boardnotify/internal/platform/postgres/migrations"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command and exit ("+strings.Join(migrations.Commands, "|")+")")
	flag.Parse()

	if err := run(context.Background(), *migrateCmd); err != nil {
		slog.Error("boardnotify exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run loads configuration, connects to the database and either executes a
// migration command or serves until shutdown.
func run(ctx context.Context, migrateCmd string) error {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("environment", cfg.Server.Environment),
		slog.String("log_level", cfg.Server.LogLevel))

	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer func() { _ = db.Close() }()
		return migrations.Run(ctx, db, migrateCmd, log)
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
