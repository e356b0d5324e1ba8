//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/platform/postgres"
	"github.com/phrazzld/boardnotify/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containsEmail(batch []*domain.QueuedEmail, id uuid.UUID) bool {
	for _, e := range batch {
		if e.ID == id {
			return true
		}
	}
	return false
}

func TestEmailQueueStoreIntegration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		queue := postgres.NewPostgresEmailQueueStore(db, nil).WithTx(tx)

		email, err := domain.NewQueuedEmail("ada@example.com", "Welcome", "welcome",
			map[string]any{"userName": "Ada"}, 2)
		require.NoError(t, err)
		require.NoError(t, queue.Enqueue(ctx, email))

		now := time.Now().UTC()
		batch, err := queue.FetchDueBatch(ctx, 500, now)
		require.NoError(t, err)
		require.True(t, containsEmail(batch, email.ID))

		status, err := queue.RecordFailure(ctx, email.ID, "smtp timeout", now)
		require.NoError(t, err)
		assert.Equal(t, domain.EmailStatusPending, status)

		batch, err = queue.FetchDueBatch(ctx, 500, now)
		require.NoError(t, err)
		assert.False(t, containsEmail(batch, email.ID), "backoff should hide the retried email")

		later := now.Add(domain.Backoff(1) + time.Second)
		batch, err = queue.FetchDueBatch(ctx, 500, later)
		require.NoError(t, err)
		require.True(t, containsEmail(batch, email.ID))

		status, err = queue.RecordFailure(ctx, email.ID, "smtp timeout", later)
		require.NoError(t, err)
		assert.Equal(t, domain.EmailStatusFailed, status)

		stats, err := queue.Stats(ctx, 24*time.Hour, later)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stats.Failed, 1)

		second, err := domain.NewQueuedEmail("grace@example.com", "Welcome", "welcome", nil, 0)
		require.NoError(t, err)
		require.NoError(t, queue.Enqueue(ctx, second))
		require.NoError(t, queue.RecordSuccess(ctx, second.ID, later))

		batch, err = queue.FetchDueBatch(ctx, 500, later.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, containsEmail(batch, second.ID))
	})
}

func TestReminderStoreIntegration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		reminders := postgres.NewPostgresReminderStore(tx, nil)
		today := domain.Day(time.Now(), time.UTC)

		insertUser := func(notifications bool) (uuid.UUID, string) {
			id := uuid.New()
			email := id.String()[:8] + "@example.com"
			_, err := tx.ExecContext(ctx,
				`INSERT INTO users (id, email, name, email_notifications) VALUES ($1, $2, $3, $4)`,
				id, email, "Tester", notifications)
			require.NoError(t, err)
			return id, email
		}
		insertTask := func(assignee uuid.UUID, dueInDays int, status string) uuid.UUID {
			id := uuid.New()
			_, err := tx.ExecContext(ctx,
				`INSERT INTO tasks (id, title, due_date, status, assignee_id) VALUES ($1, $2, $3, $4, $5)`,
				id, "Task "+id.String()[:8], today.AddDate(0, 0, dueInDays).Format("2006-01-02"), status, assignee)
			require.NoError(t, err)
			return id
		}

		user, _ := insertUser(true)
		muted, _ := insertUser(false)
		dueTomorrow := insertTask(user, 1, "todo")
		dueLater := insertTask(user, 5, "todo")
		done := insertTask(user, 0, "completed")
		mutedTask := insertTask(muted, 1, "todo")

		candidates, err := reminders.FindCandidates(ctx, today, 2)
		require.NoError(t, err)
		ids := map[uuid.UUID]bool{}
		for _, c := range candidates {
			ids[c.TaskID] = true
		}
		assert.True(t, ids[dueTomorrow])
		assert.False(t, ids[dueLater])
		assert.False(t, ids[done])
		assert.False(t, ids[mutedTask])

		entry, err := domain.NewReminderLogEntry(dueTomorrow, user, today)
		require.NoError(t, err)
		require.NoError(t, reminders.LogReminder(ctx, entry))
		require.NoError(t, reminders.LogReminder(ctx, entry))

		candidates, err = reminders.FindCandidates(ctx, today, 2)
		require.NoError(t, err)
		for _, c := range candidates {
			assert.NotEqual(t, dueTomorrow, c.TaskID)
		}
	})
}

func TestAdvisoryLockerIntegration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()
	locker := postgres.NewAdvisoryLocker(db, nil)
	name := "integration-" + uuid.NewString()

	first, ok, err := locker.TryAcquire(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryAcquire(ctx, name)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx))

	again, ok, err := locker.TryAcquire(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, again.Release(ctx))
}
