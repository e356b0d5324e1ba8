package render

import "fmt"

// TemplateName identifies one of the engine's email templates.
type TemplateName string

// Supported templates.
const (
	TaskReminder      TemplateName = "task-reminder"
	MultiTaskReminder TemplateName = "multi-task-reminder"
	TaskAssigned      TemplateName = "task-assigned"
	WorkspaceInvite   TemplateName = "workspace-invite"
	Welcome           TemplateName = "welcome"
	VerifyEmail       TemplateName = "verify-email"
	PasswordReset     TemplateName = "password-reset"
	TrialEnding       TemplateName = "trial-ending"
)

// rawFields carry pre-built HTML fragments or URLs and are substituted
// without escaping.
var rawFields = map[string]bool{
	"taskRows":     true,
	"actionUrl":    true,
	"dashboardUrl": true,
	"inviteUrl":    true,
	"verifyUrl":    true,
	"resetUrl":     true,
	"billingUrl":   true,
}

// schemas declares the data fields each template accepts.
var schemas = map[TemplateName][]string{
	TaskReminder: {
		"userName", "taskTitle", "taskDescription", "dueDate", "dueLabel", "priority", "actionUrl",
	},
	MultiTaskReminder: {
		"userName", "taskCount", "taskRows", "dashboardUrl",
	},
	TaskAssigned: {
		"userName", "assignerName", "taskTitle", "taskDescription", "boardName", "dueDate", "priority", "actionUrl",
	},
	WorkspaceInvite: {
		"inviterName", "workspaceName", "role", "inviteUrl",
	},
	Welcome: {
		"userName", "dashboardUrl",
	},
	VerifyEmail: {
		"userName", "verifyUrl", "expiresInHours",
	},
	PasswordReset: {
		"userName", "resetUrl", "expiresInHours",
	},
	TrialEnding: {
		"userName", "workspaceName", "daysLeft", "trialEndDate", "billingUrl",
	},
}

// Names returns every supported template name.
func Names() []TemplateName {
	return []TemplateName{
		TaskReminder, MultiTaskReminder, TaskAssigned, WorkspaceInvite,
		Welcome, VerifyEmail, PasswordReset, TrialEnding,
	}
}

// ParseTemplateName converts a stored template identifier into a TemplateName.
func ParseTemplateName(s string) (TemplateName, error) {
	name := TemplateName(s)
	if _, ok := schemas[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, s)
	}
	return name, nil
}

// Fields returns the data fields declared by a template.
func Fields(name TemplateName) ([]string, error) {
	fields, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out, nil
}
