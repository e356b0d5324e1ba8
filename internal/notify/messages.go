package notify

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/render"
)

// dateFormat is how due dates appear in email bodies.
const dateFormat = "Mon, Jan 2"

// ReminderTask is a task summarized for a reminder email.
type ReminderTask struct {
	ID           uuid.UUID
	Title        string
	Description  string
	DueDate      time.Time
	DaysUntilDue int
	Priority     string
}

// TaskReminderParams describes a single-task due-date reminder.
type TaskReminderParams struct {
	To       string
	UserName string
	Task     ReminderTask
}

// MultiTaskReminderParams describes an aggregated reminder for several tasks.
type MultiTaskReminderParams struct {
	To       string
	UserName string
	Tasks    []ReminderTask
}

// TaskAssignedParams describes an assignment notice.
type TaskAssignedParams struct {
	To              string
	UserName        string
	AssignerName    string
	BoardName       string
	TaskID          uuid.UUID
	TaskTitle       string
	TaskDescription string
	DueDate         *time.Time
	Priority        string
}

// WorkspaceInviteParams describes an invitation to join a workspace.
type WorkspaceInviteParams struct {
	To            string
	InviterName   string
	WorkspaceName string
	Role          string
	Token         string
}

// WelcomeParams describes the post-signup welcome email.
type WelcomeParams struct {
	To       string
	UserName string
}

// EmailVerificationParams describes an address verification email.
type EmailVerificationParams struct {
	To             string
	UserName       string
	Token          string
	ExpiresInHours int
}

// PasswordResetParams describes a password reset email.
type PasswordResetParams struct {
	To             string
	UserName       string
	Token          string
	ExpiresInHours int
}

// TrialEndingParams describes a trial expiry warning.
type TrialEndingParams struct {
	To            string
	UserName      string
	WorkspaceName string
	DaysLeft      int
	TrialEndsAt   time.Time
}

// Builder maps notification parameters to email requests. Every notification
// type has a fixed subject, template and data mapping.
type Builder struct {
	appURL string
}

// NewBuilder creates a Builder whose links point at appURL.
func NewBuilder(appURL string) Builder {
	return Builder{appURL: strings.TrimRight(appURL, "/")}
}

// TaskURL returns the link to a task.
func (b Builder) TaskURL(id uuid.UUID) string {
	return b.appURL + "/tasks/" + id.String()
}

// DashboardURL returns the link to the user's dashboard.
func (b Builder) DashboardURL() string {
	return b.appURL + "/dashboard"
}

// TaskReminder builds a single-task reminder.
func (b Builder) TaskReminder(p TaskReminderParams) EmailRequest {
	label := DueLabel(p.Task.DaysUntilDue)
	return EmailRequest{
		To:       p.To,
		Subject:  fmt.Sprintf("Reminder: %q is due %s", p.Task.Title, label),
		Template: string(render.TaskReminder),
		TemplateData: map[string]any{
			"userName":        p.UserName,
			"taskTitle":       p.Task.Title,
			"taskDescription": p.Task.Description,
			"dueDate":         formatDate(p.Task.DueDate),
			"dueLabel":        label,
			"priority":        PriorityLabel(p.Task.Priority),
			"actionUrl":       b.TaskURL(p.Task.ID),
		},
	}
}

// MultiTaskReminder builds an aggregated reminder listing every task.
func (b Builder) MultiTaskReminder(p MultiTaskReminderParams) EmailRequest {
	var rows strings.Builder
	for _, t := range p.Tasks {
		fmt.Fprintf(&rows,
			`<tr><td><a href="%s"><strong>%s</strong></a></td><td>%s</td><td>%s</td></tr>`+"\n",
			html.EscapeString(b.TaskURL(t.ID)),
			html.EscapeString(t.Title),
			html.EscapeString(DueLabel(t.DaysUntilDue)+" ("+formatDate(t.DueDate)+")"),
			html.EscapeString(PriorityLabel(t.Priority)),
		)
	}

	return EmailRequest{
		To:       p.To,
		Subject:  fmt.Sprintf("Reminder: %d tasks due soon", len(p.Tasks)),
		Template: string(render.MultiTaskReminder),
		TemplateData: map[string]any{
			"userName":     p.UserName,
			"taskCount":    len(p.Tasks),
			"taskRows":     rows.String(),
			"dashboardUrl": b.DashboardURL(),
		},
	}
}

// TaskAssigned builds an assignment notice.
func (b Builder) TaskAssigned(p TaskAssignedParams) EmailRequest {
	due := ""
	if p.DueDate != nil {
		due = formatDate(*p.DueDate)
	}
	return EmailRequest{
		To:       p.To,
		Subject:  "You've been assigned: " + p.TaskTitle,
		Template: string(render.TaskAssigned),
		TemplateData: map[string]any{
			"userName":        p.UserName,
			"assignerName":    p.AssignerName,
			"boardName":       p.BoardName,
			"taskTitle":       p.TaskTitle,
			"taskDescription": p.TaskDescription,
			"dueDate":         due,
			"priority":        PriorityLabel(p.Priority),
			"actionUrl":       b.TaskURL(p.TaskID),
		},
	}
}

// WorkspaceInvite builds a workspace invitation.
func (b Builder) WorkspaceInvite(p WorkspaceInviteParams) EmailRequest {
	return EmailRequest{
		To:       p.To,
		Subject:  fmt.Sprintf("%s invited you to %s", p.InviterName, p.WorkspaceName),
		Template: string(render.WorkspaceInvite),
		TemplateData: map[string]any{
			"inviterName":   p.InviterName,
			"workspaceName": p.WorkspaceName,
			"role":          p.Role,
			"inviteUrl":     b.appURL + "/invite/" + url.PathEscape(p.Token),
		},
	}
}

// Welcome builds the welcome email.
func (b Builder) Welcome(p WelcomeParams) EmailRequest {
	return EmailRequest{
		To:       p.To,
		Subject:  "Welcome aboard",
		Template: string(render.Welcome),
		TemplateData: map[string]any{
			"userName":     p.UserName,
			"dashboardUrl": b.DashboardURL(),
		},
	}
}

// EmailVerification builds an address verification email.
func (b Builder) EmailVerification(p EmailVerificationParams) EmailRequest {
	return EmailRequest{
		To:       p.To,
		Subject:  "Verify your email address",
		Template: string(render.VerifyEmail),
		TemplateData: map[string]any{
			"userName":       p.UserName,
			"verifyUrl":      b.appURL + "/verify-email?token=" + url.QueryEscape(p.Token),
			"expiresInHours": p.ExpiresInHours,
		},
	}
}

// PasswordReset builds a password reset email.
func (b Builder) PasswordReset(p PasswordResetParams) EmailRequest {
	return EmailRequest{
		To:       p.To,
		Subject:  "Reset your password",
		Template: string(render.PasswordReset),
		TemplateData: map[string]any{
			"userName":       p.UserName,
			"resetUrl":       b.appURL + "/reset-password?token=" + url.QueryEscape(p.Token),
			"expiresInHours": p.ExpiresInHours,
		},
	}
}

// TrialEnding builds a trial expiry warning.
func (b Builder) TrialEnding(p TrialEndingParams) EmailRequest {
	days := "in " + strconv.Itoa(p.DaysLeft) + " days"
	if p.DaysLeft == 1 {
		days = "tomorrow"
	}
	return EmailRequest{
		To:       p.To,
		Subject:  "Your trial ends " + days,
		Template: string(render.TrialEnding),
		TemplateData: map[string]any{
			"userName":      p.UserName,
			"workspaceName": p.WorkspaceName,
			"daysLeft":      p.DaysLeft,
			"trialEndDate":  p.TrialEndsAt.Format("January 2, 2006"),
			"billingUrl":    b.appURL + "/settings/billing",
		},
	}
}

// DueLabel words a due date relative to today.
func DueLabel(days int) string {
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

// PriorityLabel capitalizes a stored priority value.
func PriorityLabel(priority string) string {
	p := strings.TrimSpace(priority)
	if p == "" {
		return ""
	}
	return strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateFormat)
}
