package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/platform/logger"
	"github.com/phrazzld/boardnotify/internal/store"
)

// maxErrorLength bounds the stored last_error text.
const maxErrorLength = 2000

// PostgresEmailQueueStore implements store.EmailQueueStore on the email_queue table.
type PostgresEmailQueueStore struct {
	db     store.DBTX
	pool   *sql.DB
	logger *slog.Logger
}

// NewPostgresEmailQueueStore creates a queue store backed by db.
// If logger is nil, the default logger is used.
func NewPostgresEmailQueueStore(db *sql.DB, logger *slog.Logger) *PostgresEmailQueueStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEmailQueueStore{
		db:     db,
		pool:   db,
		logger: logger.With(slog.String("component", "email_queue_store")),
	}
}

// Ensure PostgresEmailQueueStore implements store.EmailQueueStore interface
var _ store.EmailQueueStore = (*PostgresEmailQueueStore)(nil)

// WithTx implements store.EmailQueueStore.WithTx
func (s *PostgresEmailQueueStore) WithTx(tx *sql.Tx) store.EmailQueueStore {
	return &PostgresEmailQueueStore{
		db:     tx,
		pool:   s.pool,
		logger: s.logger,
	}
}

// DB implements store.EmailQueueStore.DB
func (s *PostgresEmailQueueStore) DB() *sql.DB {
	return s.pool
}

// Enqueue implements store.EmailQueueStore.Enqueue
func (s *PostgresEmailQueueStore) Enqueue(ctx context.Context, email *domain.QueuedEmail) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := email.Validate(); err != nil {
		log.Warn("queued email validation failed during enqueue",
			slog.String("error", err.Error()),
			slog.String("email_id", email.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	data, err := json.Marshal(email.TemplateData)
	if err != nil {
		return fmt.Errorf("%w: template data: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO email_queue (
			id, recipient, subject, template_name, template_data,
			status, attempts, max_attempts, created_at
		)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		email.ID,
		email.Recipient,
		email.Subject,
		email.TemplateName,
		string(data),
		string(email.Status),
		email.Attempts,
		email.MaxAttempts,
		email.CreatedAt,
	)
	if err != nil {
		log.Error("failed to enqueue email",
			slog.String("error", err.Error()),
			slog.String("email_id", email.ID.String()),
			slog.String("template", email.TemplateName))
		return MapError(err)
	}

	log.Debug("email enqueued",
		slog.String("email_id", email.ID.String()),
		slog.String("template", email.TemplateName))
	return nil
}

// FetchDueBatch implements store.EmailQueueStore.FetchDueBatch
func (s *PostgresEmailQueueStore) FetchDueBatch(
	ctx context.Context,
	limit int,
	now time.Time,
) ([]*domain.QueuedEmail, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		return []*domain.QueuedEmail{}, nil
	}

	query := `
		SELECT id, recipient, subject, template_name, template_data,
		       status, attempts, max_attempts, last_error, last_attempted_at,
		       sent_at, created_at
		FROM email_queue
		WHERE status = 'pending'
		  AND attempts < max_attempts
		  AND (
		        last_attempted_at IS NULL
		     OR last_attempted_at < $1::timestamptz
		          - make_interval(secs => power(2, attempts)::double precision)
		  )
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := s.db.QueryContext(ctx, query, now.UTC(), limit)
	if err != nil {
		log.Error("failed to fetch due emails", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	emails := make([]*domain.QueuedEmail, 0, limit)
	for rows.Next() {
		email, err := scanQueuedEmail(rows)
		if err != nil {
			log.Error("failed to scan queued email", slog.String("error", err.Error()))
			return nil, err
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("fetched due emails", slog.Int("count", len(emails)))
	return emails, nil
}

// RecordSuccess implements store.EmailQueueStore.RecordSuccess
func (s *PostgresEmailQueueStore) RecordSuccess(ctx context.Context, id uuid.UUID, now time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE email_queue
		SET status = 'sent',
		    sent_at = $2,
		    attempts = attempts + 1,
		    last_attempted_at = $2
		WHERE id = $1
		  AND status = 'pending'
		  AND attempts < max_attempts
	`
	result, err := s.db.ExecContext(ctx, query, id, now.UTC())
	if err != nil {
		log.Error("failed to record email success",
			slog.String("error", err.Error()),
			slog.String("email_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrQueuedEmailNotFound); err != nil {
		log.Warn("no pending email to mark sent", slog.String("email_id", id.String()))
		return err
	}
	return nil
}

// RecordFailure implements store.EmailQueueStore.RecordFailure
func (s *PostgresEmailQueueStore) RecordFailure(
	ctx context.Context,
	id uuid.UUID,
	message string,
	now time.Time,
) (domain.EmailStatus, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(message) > maxErrorLength {
		message = message[:maxErrorLength]
	}

	query := `
		UPDATE email_queue
		SET attempts = attempts + 1,
		    status = CASE
		        WHEN attempts + 1 >= max_attempts THEN 'failed'
		        ELSE 'pending'
		    END,
		    last_error = $2,
		    last_attempted_at = $3
		WHERE id = $1
		  AND status = 'pending'
		  AND attempts < max_attempts
		RETURNING status
	`
	var status string
	err := s.db.QueryRowContext(ctx, query, id, message, now.UTC()).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("no pending email to record failure on", slog.String("email_id", id.String()))
			return "", store.ErrQueuedEmailNotFound
		}
		log.Error("failed to record email failure",
			slog.String("error", err.Error()),
			slog.String("email_id", id.String()))
		return "", MapError(err)
	}

	return domain.EmailStatus(status), nil
}

// Stats implements store.EmailQueueStore.Stats
func (s *PostgresEmailQueueStore) Stats(
	ctx context.Context,
	window time.Duration,
	now time.Time,
) (*domain.QueueStats, error) {
	if window <= 0 {
		window = store.DefaultStatsWindow
	}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'pending' AND attempts > 0)
		FROM email_queue
		WHERE created_at >= $1
	`
	var stats domain.QueueStats
	err := s.db.QueryRowContext(ctx, query, now.UTC().Add(-window)).Scan(
		&stats.Pending,
		&stats.Sent,
		&stats.Failed,
		&stats.Retrying,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to compute queue stats",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return &stats, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueuedEmail(row rowScanner) (*domain.QueuedEmail, error) {
	var (
		email           domain.QueuedEmail
		data            []byte
		status          string
		lastError       sql.NullString
		lastAttemptedAt sql.NullTime
		sentAt          sql.NullTime
	)

	err := row.Scan(
		&email.ID,
		&email.Recipient,
		&email.Subject,
		&email.TemplateName,
		&data,
		&status,
		&email.Attempts,
		&email.MaxAttempts,
		&lastError,
		&lastAttemptedAt,
		&sentAt,
		&email.CreatedAt,
	)
	if err != nil {
		return nil, MapError(err)
	}

	email.Status = domain.EmailStatus(status)
	email.TemplateData = map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &email.TemplateData); err != nil {
			return nil, fmt.Errorf("decode template data for %s: %w", email.ID, err)
		}
		if email.TemplateData == nil {
			email.TemplateData = map[string]any{}
		}
	}
	if lastError.Valid {
		email.LastError = &lastError.String
	}
	if lastAttemptedAt.Valid {
		t := lastAttemptedAt.Time.UTC()
		email.LastAttemptedAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time.UTC()
		email.SentAt = &t
	}
	return &email, nil
}
