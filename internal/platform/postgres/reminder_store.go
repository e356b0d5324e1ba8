package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/platform/logger"
	"github.com/phrazzld/boardnotify/internal/store"
)

// dateLayout is the wire format for DATE parameters.
const dateLayout = "2006-01-02"

// PostgresReminderStore implements store.ReminderStore over the tasks and
// users tables and the task_reminder_log dedup table.
type PostgresReminderStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReminderStore creates a reminder store using db.
// If logger is nil, the default logger is used.
func NewPostgresReminderStore(db store.DBTX, logger *slog.Logger) *PostgresReminderStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReminderStore{
		db:     db,
		logger: logger.With(slog.String("component", "reminder_store")),
	}
}

// Ensure PostgresReminderStore implements store.ReminderStore interface
var _ store.ReminderStore = (*PostgresReminderStore)(nil)

// FindCandidates implements store.ReminderStore.FindCandidates
func (s *PostgresReminderStore) FindCandidates(
	ctx context.Context,
	today time.Time,
	lookaheadDays int,
) ([]*domain.ReminderCandidateTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if lookaheadDays < 0 {
		return nil, fmt.Errorf("%w: lookahead days must not be negative", store.ErrInvalidEntity)
	}

	query := `
		SELECT t.id, t.title, COALESCE(t.description, ''), t.due_date::date,
		       COALESCE(t.priority, ''), t.status,
		       u.id, u.email, COALESCE(u.name, ''),
		       COALESCE(u.email_notifications, TRUE)
		FROM tasks t
		JOIN users u ON u.id = t.assignee_id
		WHERE t.status <> 'completed'
		  AND t.completed_at IS NULL
		  AND t.due_date IS NOT NULL
		  AND t.due_date::date BETWEEN $1::date AND $1::date + $2::int
		  AND COALESCE(u.email, '') <> ''
		  AND COALESCE(u.email_notifications, TRUE)
		  AND NOT EXISTS (
		      SELECT 1
		      FROM task_reminder_log l
		      WHERE l.task_id = t.id
		        AND l.user_id = u.id
		        AND l.reminded_on = $1::date
		  )
		ORDER BY t.due_date ASC, t.created_at ASC, t.id ASC
	`

	day := today.Format(dateLayout)
	rows, err := s.db.QueryContext(ctx, query, day, lookaheadDays)
	if err != nil {
		log.Error("failed to query reminder candidates",
			slog.String("error", err.Error()),
			slog.String("today", day))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.ReminderCandidateTask
	for rows.Next() {
		var task domain.ReminderCandidateTask
		if err := rows.Scan(
			&task.TaskID,
			&task.Title,
			&task.Description,
			&task.DueDate,
			&task.Priority,
			&task.Status,
			&task.AssigneeID,
			&task.AssigneeEmail,
			&task.AssigneeName,
			&task.EmailNotifications,
		); err != nil {
			log.Error("failed to scan reminder candidate", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		task.DueDate = domain.Day(task.DueDate, time.UTC)
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("found reminder candidates",
		slog.Int("count", len(tasks)),
		slog.String("today", day),
		slog.Int("lookahead_days", lookaheadDays))
	return tasks, nil
}

// LogReminder implements store.ReminderStore.LogReminder
func (s *PostgresReminderStore) LogReminder(ctx context.Context, entry *domain.ReminderLogEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO task_reminder_log (task_id, user_id, reminded_on)
		VALUES ($1, $2, $3::date)
		ON CONFLICT (task_id, user_id, reminded_on) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		entry.TaskID,
		entry.UserID,
		entry.RemindedOn.Format(dateLayout),
	)
	if err != nil {
		log.Error("failed to write reminder log entry",
			slog.String("error", err.Error()),
			slog.String("task_id", entry.TaskID.String()),
			slog.String("user_id", entry.UserID.String()))
		return MapError(err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		log.Debug("reminder already logged for day",
			slog.String("task_id", entry.TaskID.String()),
			slog.String("reminded_on", entry.RemindedOn.Format(dateLayout)))
	}
	return nil
}
