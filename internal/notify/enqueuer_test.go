package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/mocks"
	"github.com/phrazzld/boardnotify/internal/render"
	"github.com/phrazzld/boardnotify/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnqueuer(t *testing.T, queue store.EmailQueueStore) *Enqueuer {
	t.Helper()
	r, err := render.New()
	require.NoError(t, err)
	return NewEnqueuer(queue, r, NewBuilder("https://board.example.com"), 0, nil)
}

func TestEnqueuer_QueueEmail(t *testing.T) {
	t.Parallel()

	t.Run("stores pending email", func(t *testing.T) {
		t.Parallel()
		queue := mocks.NewMockEmailQueueStore(nil)
		e := newEnqueuer(t, queue)

		id, err := e.QueueEmail(context.Background(), EmailRequest{
			To:           "ada@example.com",
			Subject:      "Welcome aboard",
			Template:     "welcome",
			TemplateData: map[string]any{"userName": "Ada"},
		})
		require.NoError(t, err)

		stored, ok := queue.Get(id)
		require.True(t, ok)
		assert.Equal(t, domain.EmailStatusPending, stored.Status)
		assert.Equal(t, 0, stored.Attempts)
		assert.Equal(t, domain.DefaultMaxAttempts, stored.MaxAttempts)
		assert.Equal(t, "welcome", stored.TemplateName)
		assert.Nil(t, stored.SentAt)
	})

	t.Run("honors request max attempts", func(t *testing.T) {
		t.Parallel()
		queue := mocks.NewMockEmailQueueStore(nil)
		e := newEnqueuer(t, queue)

		id, err := e.QueueEmail(context.Background(), EmailRequest{
			To:          "ada@example.com",
			Subject:     "Welcome aboard",
			Template:    "welcome",
			MaxAttempts: 5,
		})
		require.NoError(t, err)

		stored, _ := queue.Get(id)
		assert.Equal(t, 5, stored.MaxAttempts)
	})

	invalid := []struct {
		name string
		req  EmailRequest
	}{
		{"missing recipient", EmailRequest{Subject: "s", Template: "welcome"}},
		{"bad recipient", EmailRequest{To: "not-an-email", Subject: "s", Template: "welcome"}},
		{"missing subject", EmailRequest{To: "a@example.com", Template: "welcome"}},
		{"unknown template", EmailRequest{To: "a@example.com", Subject: "s", Template: "newsletter"}},
		{"undeclared field", EmailRequest{
			To: "a@example.com", Subject: "s", Template: "welcome",
			TemplateData: map[string]any{"taskTitle": "x"},
		}},
		{"max attempts too high", EmailRequest{To: "a@example.com", Subject: "s", Template: "welcome", MaxAttempts: 50}},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			queue := mocks.NewMockEmailQueueStore(nil)
			e := newEnqueuer(t, queue)

			id, err := e.QueueEmail(context.Background(), tc.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, uuid.Nil, id)
			assert.Empty(t, queue.All())
		})
	}

	t.Run("store failure is returned", func(t *testing.T) {
		t.Parallel()
		storeErr := errors.New("connection reset")
		queue := &mocks.MockEmailQueueStore{
			EnqueueFn: func(context.Context, *domain.QueuedEmail) error { return storeErr },
		}
		e := newEnqueuer(t, queue)

		_, err := e.QueueEmail(context.Background(), EmailRequest{
			To: "ada@example.com", Subject: "s", Template: "welcome",
		})
		assert.ErrorIs(t, err, storeErr)
		assert.NotErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestEnqueuer_Wrappers(t *testing.T) {
	t.Parallel()

	queue := mocks.NewMockEmailQueueStore(nil)
	e := newEnqueuer(t, queue)
	ctx := context.Background()
	due := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	task := ReminderTask{ID: uuid.New(), Title: "Ship", DueDate: due, DaysUntilDue: 1}

	calls := []func() (uuid.UUID, error){
		func() (uuid.UUID, error) {
			return e.QueueTaskReminder(ctx, TaskReminderParams{To: "a@example.com", UserName: "A", Task: task})
		},
		func() (uuid.UUID, error) {
			return e.QueueMultiTaskReminder(ctx, MultiTaskReminderParams{To: "a@example.com", Tasks: []ReminderTask{task, task}})
		},
		func() (uuid.UUID, error) {
			return e.QueueTaskAssigned(ctx, TaskAssignedParams{To: "a@example.com", TaskID: uuid.New(), TaskTitle: "Ship"})
		},
		func() (uuid.UUID, error) {
			return e.QueueWorkspaceInvite(ctx, WorkspaceInviteParams{To: "a@example.com", InviterName: "B", WorkspaceName: "Acme", Token: "t"})
		},
		func() (uuid.UUID, error) {
			return e.QueueWelcome(ctx, WelcomeParams{To: "a@example.com"})
		},
		func() (uuid.UUID, error) {
			return e.QueueEmailVerification(ctx, EmailVerificationParams{To: "a@example.com", Token: "t", ExpiresInHours: 24})
		},
		func() (uuid.UUID, error) {
			return e.QueuePasswordReset(ctx, PasswordResetParams{To: "a@example.com", Token: "t", ExpiresInHours: 1})
		},
		func() (uuid.UUID, error) {
			return e.QueueTrialEnding(ctx, TrialEndingParams{To: "a@example.com", WorkspaceName: "Acme", DaysLeft: 3, TrialEndsAt: due})
		},
	}

	for _, call := range calls {
		id, err := call()
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)
	}

	templates := map[string]bool{}
	for _, email := range queue.All() {
		templates[email.TemplateName] = true
	}
	for _, name := range render.Names() {
		assert.True(t, templates[string(name)], "no queued email for %s", name)
	}
}
