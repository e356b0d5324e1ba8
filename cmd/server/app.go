package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/boardnotify/internal/config"
	"github.com/phrazzld/boardnotify/internal/lock"
	"github.com/phrazzld/boardnotify/internal/mail"
	"github.com/phrazzld/boardnotify/internal/notify"
	"github.com/phrazzld/boardnotify/internal/platform/postgres"
	"github.com/phrazzld/boardnotify/internal/platform/redislock"
	"github.com/phrazzld/boardnotify/internal/platform/ses"
	"github.com/phrazzld/boardnotify/internal/queue"
	"github.com/phrazzld/boardnotify/internal/reminder"
	"github.com/phrazzld/boardnotify/internal/render"
	"github.com/phrazzld/boardnotify/internal/scheduler"
	"github.com/phrazzld/boardnotify/internal/service/auth"
	"github.com/phrazzld/boardnotify/internal/store"
	"github.com/redis/go-redis/v9"
)

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *redis.Client

	queueStore    store.EmailQueueStore
	reminderStore store.ReminderStore
	locker        lock.Locker
	transport     mail.Transport
	renderer      *render.Renderer

	enqueuer  *notify.Enqueuer
	processor *queue.Processor
	generator *reminder.Generator
	scheduler *scheduler.Scheduler

	jwtService auth.JWTService
	trigger    *auth.TriggerAuthenticator
}

// newApplication wires every component on top of an established database
// connection. Jobs are registered but the scheduler is not started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.trigger = auth.NewTriggerAuthenticator(cfg.Reminder.TriggerSecret, cfg.Server.IsProduction())
	if !app.trigger.Configured() {
		logger.Warn("reminder trigger secret not configured",
			slog.Bool("fail_closed", cfg.Server.IsProduction()))
	}

	app.queueStore = postgres.NewPostgresEmailQueueStore(db, logger)
	app.reminderStore = postgres.NewPostgresReminderStore(db, logger)

	if app.locker, err = app.setupLocker(ctx); err != nil {
		return nil, err
	}
	if app.transport, err = app.setupTransport(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	app.renderer, err = render.New()
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to compile email templates: %w", err)
	}

	builder := notify.NewBuilder(cfg.Reminder.AppURL)
	app.enqueuer = notify.NewEnqueuer(app.queueStore, app.renderer, builder, cfg.Queue.MaxAttempts, logger)

	app.processor = queue.NewProcessor(app.queueStore, app.locker, app.renderer, app.transport, queue.Config{
		BatchSize:   cfg.Queue.BatchSize,
		SendTimeout: cfg.Queue.SendTimeout(),
	}, logger)

	loc, err := cfg.Reminder.Location()
	if err != nil {
		app.cleanup()
		return nil, err
	}
	delivery, err := reminder.ParseDeliveryMode(cfg.Reminder.Delivery)
	if err != nil {
		app.cleanup()
		return nil, err
	}
	app.generator, err = reminder.NewGenerator(reminder.Deps{
		Store:     app.reminderStore,
		Locker:    app.locker,
		Transport: app.transport,
		Renderer:  app.renderer,
		Enqueuer:  app.enqueuer,
		Builder:   builder,
	}, reminder.Config{
		LookaheadDays: cfg.Reminder.LookaheadDays,
		DryRun:        cfg.Reminder.DryRun,
		Delivery:      delivery,
		Location:      loc,
		SendTimeout:   cfg.Queue.SendTimeout(),
	}, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create reminder generator: %w", err)
	}

	app.scheduler = scheduler.New(loc, logger)
	app.registerJobs()

	logger.Info("application initialized",
		slog.String("lock_backend", cfg.Lock.Backend),
		slog.String("mail_transport", cfg.Mail.Transport),
		slog.String("reminder_delivery", string(delivery)))
	return app, nil
}

// setupLocker builds the configured lock backend.
func (app *application) setupLocker(ctx context.Context) (lock.Locker, error) {
	switch app.config.Lock.Backend {
	case "postgres":
		return postgres.NewAdvisoryLocker(app.db, app.logger), nil
	case "redis":
		client, err := redislock.NewClient(ctx, app.config.Lock.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		return redislock.New(client, app.config.Lock.TTL(), app.logger), nil
	case "memory":
		app.logger.Warn("using in-process locks; run a single instance only")
		return lock.NewMemoryLocker(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", app.config.Lock.Backend)
	}
}

// setupTransport builds the configured email transport.
func (app *application) setupTransport(ctx context.Context) (mail.Transport, error) {
	switch app.config.Mail.Transport {
	case "ses":
		t, err := ses.NewFromEnvironment(ctx,
			app.config.Mail.AWSRegion, app.config.Mail.FromAddress, app.config.Mail.FromName, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES transport: %w", err)
		}
		return t, nil
	case "log":
		return mail.NewLogTransport(app.logger), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", app.config.Mail.Transport)
	}
}

// registerJobs adds the enabled background jobs to the scheduler. A job with
// an invalid schedule is logged and left out.
func (app *application) registerJobs() {
	if app.config.Queue.Enabled {
		_ = app.scheduler.Register(scheduler.JobQueueProcessor, app.config.Queue.Schedule,
			func(ctx context.Context) error {
				_, err := app.processor.ProcessBatch(ctx)
				return err
			})
	}
	if app.config.Reminder.Enabled {
		_ = app.scheduler.Register(scheduler.JobReminderGenerator, app.config.Reminder.Schedule,
			func(ctx context.Context) error {
				_, err := app.generator.SendReminderEmails(ctx)
				return err
			})
	}
}

// Run starts the scheduler and serves HTTP until shutdown.
func (app *application) Run(ctx context.Context) error {
	app.scheduler.Start()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the scheduler and closes external connections.
func (app *application) cleanup() {
	if app.scheduler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := app.scheduler.Stop(ctx); err != nil {
			app.logger.Error("scheduler did not stop cleanly", slog.String("error", err.Error()))
		}
		cancel()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis connection", slog.String("error", err.Error()))
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
