package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/domain"
)

// DefaultStatsWindow is the creation-time window used for queue statistics.
const DefaultStatsWindow = 24 * time.Hour

// EmailQueueStore defines the interface for the durable email queue.
type EmailQueueStore interface {
	// Enqueue persists a new pending email.
	// Returns validation errors from the domain QueuedEmail if data is invalid.
	Enqueue(ctx context.Context, email *domain.QueuedEmail) error

	// FetchDueBatch returns up to limit pending emails that are below their
	// attempt ceiling and past their backoff window at now, oldest first.
	// Rows are locked for the surrounding transaction; rows locked by another
	// transaction are skipped.
	FetchDueBatch(ctx context.Context, limit int, now time.Time) ([]*domain.QueuedEmail, error)

	// RecordSuccess marks a pending email as sent at now.
	// Returns ErrQueuedEmailNotFound if no pending row with that ID exists.
	RecordSuccess(ctx context.Context, id uuid.UUID, now time.Time) error

	// RecordFailure records a failed attempt and returns the resulting status:
	// failed once the attempt ceiling is reached, pending otherwise.
	// Returns ErrQueuedEmailNotFound if no pending row with that ID exists.
	RecordFailure(ctx context.Context, id uuid.UUID, message string, now time.Time) (domain.EmailStatus, error)

	// Stats counts emails created within window before now.
	Stats(ctx context.Context, window time.Duration, now time.Time) (*domain.QueueStats, error)

	// WithTx returns a new EmailQueueStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) EmailQueueStore

	// DB returns the underlying database connection used to start transactions.
	DB() *sql.DB
}

// ReminderStore defines the interface for reminder candidate lookup and the
// per-day reminder log.
type ReminderStore interface {
	// FindCandidates returns open tasks due within [today, today+lookaheadDays]
	// whose assignee accepts email and has not been reminded today.
	// today must be a calendar day as produced by domain.Day.
	FindCandidates(ctx context.Context, today time.Time, lookaheadDays int) ([]*domain.ReminderCandidateTask, error)

	// LogReminder records a successful reminder. Logging the same
	// (task, user, day) twice is a no-op.
	LogReminder(ctx context.Context, entry *domain.ReminderLogEntry) error
}
