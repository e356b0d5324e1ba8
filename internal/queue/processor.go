// Package queue drains the durable email queue: it renders due emails, hands
// them to the transport and records each attempt's outcome.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/lock"
	"github.com/phrazzld/boardnotify/internal/mail"
	"github.com/phrazzld/boardnotify/internal/platform/logger"
	"github.com/phrazzld/boardnotify/internal/redact"
	"github.com/phrazzld/boardnotify/internal/render"
	"github.com/phrazzld/boardnotify/internal/store"
)

// Config holds configuration for the queue processor
type Config struct {
	// BatchSize bounds how many due emails one run fetches
	BatchSize int

	// SendTimeout bounds each transport call; zero disables the bound
	SendTimeout time.Duration
}

// DefaultConfig returns a Config with the standard batch size and timeout
func DefaultConfig() Config {
	return Config{
		BatchSize:   10,
		SendTimeout: 15 * time.Second,
	}
}

// Result summarizes one processing run. Failed counts emails that reached
// their attempt ceiling in this run; Retried counts emails that failed but
// stay pending for a later run.
type Result struct {
	Skipped   bool `json:"skipped"`
	Processed int  `json:"processed"`
	Sent      int  `json:"sent"`
	Failed    int  `json:"failed"`
	Retried   int  `json:"retried"`
}

// Processor processes batches of queued emails under the queue lock.
type Processor struct {
	queue     store.EmailQueueStore
	locker    lock.Locker
	renderer  *render.Renderer
	transport mail.Transport
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(
	queue store.EmailQueueStore,
	locker lock.Locker,
	renderer *render.Renderer,
	transport mail.Transport,
	config Config,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &Processor{
		queue:     queue,
		locker:    locker,
		renderer:  renderer,
		transport: transport,
		config:    config,
		logger:    logger.With(slog.String("component", "queue_processor")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the processor's time source.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// ProcessBatch sends up to one batch of due emails. When another process holds
// the queue lock it returns a skipped result without touching the queue.
// Per-email failures are recorded on the row and never abort the batch; an
// error is returned only when the datastore or the lock fails.
func (p *Processor) ProcessBatch(ctx context.Context) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	lease, acquired, err := p.locker.TryAcquire(ctx, lock.QueueProcessing)
	if err != nil {
		return nil, fmt.Errorf("acquire queue lock: %w", err)
	}
	if !acquired {
		log.Debug("queue lock held elsewhere, skipping run")
		return &Result{Skipped: true}, nil
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release queue lock", slog.String("error", redact.Error(err)))
		}
	}()

	result := &Result{}
	err = store.RunInTransaction(ctx, p.queue.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txQueue := p.queue.WithTx(tx)

		emails, err := txQueue.FetchDueBatch(ctx, p.config.BatchSize, p.now())
		if err != nil {
			return fmt.Errorf("fetch due emails: %w", err)
		}

		for _, email := range emails {
			if err := p.process(ctx, txQueue, email, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("queue processing failed", slog.String("error", redact.Error(err)))
		return nil, err
	}

	attrs := []any{
		slog.Int("processed", result.Processed),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
		slog.Int("retried", result.Retried),
	}
	if result.Processed > 0 {
		log.Info("processed email queue batch", attrs...)
	} else {
		log.Debug("email queue empty", attrs...)
	}
	return result, nil
}

// process attempts one email and records the outcome. Only recording errors
// are returned.
func (p *Processor) process(
	ctx context.Context,
	queue store.EmailQueueStore,
	email *domain.QueuedEmail,
	result *Result,
) error {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("email_id", email.ID.String()),
		slog.String("template", email.TemplateName),
	)
	result.Processed++

	messageID, sendErr := p.deliver(ctx, email)
	if sendErr == nil {
		if err := queue.RecordSuccess(ctx, email.ID, p.now()); err != nil {
			return fmt.Errorf("record success for %s: %w", email.ID, err)
		}
		result.Sent++
		log.Debug("email sent",
			slog.String("recipient", redact.Recipient(email.Recipient)),
			slog.String("message_id", messageID))
		return nil
	}

	message := redact.Error(sendErr)
	status, err := queue.RecordFailure(ctx, email.ID, message, p.now())
	if err != nil {
		return fmt.Errorf("record failure for %s: %w", email.ID, err)
	}

	if status == domain.EmailStatusFailed {
		result.Failed++
		log.Warn("email permanently failed",
			slog.Int("attempts", email.Attempts+1),
			slog.String("error", message))
	} else {
		result.Retried++
		log.Info("email send failed, will retry",
			slog.Int("attempts", email.Attempts+1),
			slog.Duration("backoff", domain.Backoff(email.Attempts+1)),
			slog.String("error", message))
	}
	return nil
}

// errSendFailed wraps unsuccessful transport results.
var errSendFailed = errors.New("send failed")

// deliver renders and sends one email, returning the provider message ID.
func (p *Processor) deliver(ctx context.Context, email *domain.QueuedEmail) (messageID string, err error) {
	name, err := render.ParseTemplateName(email.TemplateName)
	if err != nil {
		return "", err
	}
	out, err := p.renderer.Render(name, email.TemplateData)
	if err != nil {
		return "", err
	}

	if p.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.SendTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()

	res, err := p.transport.Send(ctx, mail.Message{
		To:      email.Recipient,
		Subject: email.Subject,
		HTML:    out.HTML,
		Text:    out.Text,
	})
	if err != nil {
		return "", err
	}
	if res == nil || !res.Success {
		msg := "unknown error"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		return "", fmt.Errorf("%w: %s", errSendFailed, msg)
	}
	return res.MessageID, nil
}
