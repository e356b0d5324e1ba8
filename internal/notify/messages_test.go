package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "today", DueLabel(0))
	assert.Equal(t, "today", DueLabel(-1))
	assert.Equal(t, "tomorrow", DueLabel(1))
	assert.Equal(t, "in 2 days", DueLabel(2))
}

func TestPriorityLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "High", PriorityLabel("high"))
	assert.Equal(t, "Urgent", PriorityLabel(" URGENT "))
	assert.Equal(t, "", PriorityLabel(""))
}

func TestBuilder_TaskReminder(t *testing.T) {
	t.Parallel()

	b := NewBuilder("https://board.example.com/")
	id := uuid.New()
	req := b.TaskReminder(TaskReminderParams{
		To:       "ada@example.com",
		UserName: "Ada",
		Task: ReminderTask{
			ID:           id,
			Title:        "Ship release",
			DueDate:      time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
			DaysUntilDue: 1,
			Priority:     "high",
		},
	})

	assert.Equal(t, "ada@example.com", req.To)
	assert.Equal(t, `Reminder: "Ship release" is due tomorrow`, req.Subject)
	assert.Equal(t, string(render.TaskReminder), req.Template)
	assert.Equal(t, "tomorrow", req.TemplateData["dueLabel"])
	assert.Equal(t, "High", req.TemplateData["priority"])
	assert.Equal(t, "Wed, Mar 11", req.TemplateData["dueDate"])
	assert.Equal(t, "https://board.example.com/tasks/"+id.String(), req.TemplateData["actionUrl"])
}

func TestBuilder_MultiTaskReminderEscapesRows(t *testing.T) {
	t.Parallel()

	b := NewBuilder("https://board.example.com")
	req := b.MultiTaskReminder(MultiTaskReminderParams{
		To:       "ada@example.com",
		UserName: "Ada",
		Tasks: []ReminderTask{
			{ID: uuid.New(), Title: "<b>Fix</b> login", DaysUntilDue: 0},
			{ID: uuid.New(), Title: "Write docs", DaysUntilDue: 2},
		},
	})

	assert.Equal(t, "Reminder: 2 tasks due soon", req.Subject)
	assert.Equal(t, 2, req.TemplateData["taskCount"])
	rows, ok := req.TemplateData["taskRows"].(string)
	require.True(t, ok)
	assert.Contains(t, rows, "&lt;b&gt;Fix&lt;/b&gt; login")
	assert.NotContains(t, rows, "<b>Fix</b>")
	assert.Contains(t, rows, "in 2 days")
	assert.Equal(t, "https://board.example.com/dashboard", req.TemplateData["dashboardUrl"])
}

// Every builder output must pass the renderer's field check.
func TestBuilder_OutputsRender(t *testing.T) {
	t.Parallel()

	r, err := render.New()
	require.NoError(t, err)

	b := NewBuilder("https://board.example.com")
	due := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	task := ReminderTask{ID: uuid.New(), Title: "Ship", DueDate: due, DaysUntilDue: 1}

	requests := []EmailRequest{
		b.TaskReminder(TaskReminderParams{To: "a@example.com", UserName: "A", Task: task}),
		b.MultiTaskReminder(MultiTaskReminderParams{To: "a@example.com", UserName: "A", Tasks: []ReminderTask{task, task}}),
		b.TaskAssigned(TaskAssignedParams{To: "a@example.com", TaskID: uuid.New(), TaskTitle: "Ship", DueDate: &due}),
		b.WorkspaceInvite(WorkspaceInviteParams{To: "a@example.com", InviterName: "B", WorkspaceName: "Acme", Role: "member", Token: "tok/1"}),
		b.Welcome(WelcomeParams{To: "a@example.com", UserName: "A"}),
		b.EmailVerification(EmailVerificationParams{To: "a@example.com", Token: "abc", ExpiresInHours: 24}),
		b.PasswordReset(PasswordResetParams{To: "a@example.com", Token: "a b", ExpiresInHours: 1}),
		b.TrialEnding(TrialEndingParams{To: "a@example.com", WorkspaceName: "Acme", DaysLeft: 1, TrialEndsAt: due}),
	}

	for _, req := range requests {
		t.Run(req.Template, func(t *testing.T) {
			name, err := render.ParseTemplateName(req.Template)
			require.NoError(t, err)
			out, err := r.Render(name, req.TemplateData)
			require.NoError(t, err)
			assert.NotEmpty(t, out.HTML)
			assert.NotEmpty(t, req.Subject)
		})
	}
}

func TestBuilder_TokensAreEscaped(t *testing.T) {
	t.Parallel()

	b := NewBuilder("https://board.example.com")

	invite := b.WorkspaceInvite(WorkspaceInviteParams{Token: "a/b"})
	assert.Equal(t, "https://board.example.com/invite/a%2Fb", invite.TemplateData["inviteUrl"])

	reset := b.PasswordReset(PasswordResetParams{Token: "a b&c"})
	assert.Equal(t, "https://board.example.com/reset-password?token=a+b%26c", reset.TemplateData["resetUrl"])

	trial := b.TrialEnding(TrialEndingParams{DaysLeft: 3})
	assert.Equal(t, "Your trial ends in 3 days", trial.Subject)
}
