package domain

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmailStatus represents the delivery state of a queued email.
type EmailStatus string

// Possible email status values
const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// DefaultMaxAttempts is the retry ceiling applied when a producer does not set one.
const DefaultMaxAttempts = 3

// Common validation errors for QueuedEmail
var (
	ErrEmptyQueuedEmailID   = errors.New("queued email ID cannot be empty")
	ErrEmptyRecipient       = errors.New("recipient cannot be empty")
	ErrEmptySubject         = errors.New("subject cannot be empty")
	ErrEmptyTemplateName    = errors.New("template name cannot be empty")
	ErrInvalidEmailStatus   = errors.New("invalid email status")
	ErrInvalidMaxAttempts   = errors.New("max attempts must be positive")
	ErrAttemptsOutOfRange   = errors.New("attempts must be between 0 and max attempts")
	ErrSentWithoutTimestamp = errors.New("sent email must have a sent timestamp")
	ErrFailedBeforeCeiling  = errors.New("failed email must have exhausted its attempts")
)

// QueuedEmail is one job in the durable email queue. Rows are created by
// producers through the enqueue API and mutated only by the queue processor.
type QueuedEmail struct {
	ID              uuid.UUID      `json:"id"`
	Recipient       string         `json:"recipient"`
	Subject         string         `json:"subject"`
	TemplateName    string         `json:"template_name"`
	TemplateData    map[string]any `json:"template_data"`
	Status          EmailStatus    `json:"status"`
	Attempts        int            `json:"attempts"`
	MaxAttempts     int            `json:"max_attempts"`
	LastError       *string        `json:"last_error,omitempty"`
	LastAttemptedAt *time.Time     `json:"last_attempted_at,omitempty"`
	SentAt          *time.Time     `json:"sent_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// NewQueuedEmail creates a pending QueuedEmail with a fresh ID and zero attempts.
// A maxAttempts of zero selects DefaultMaxAttempts.
// Returns an error if validation fails.
func NewQueuedEmail(
	recipient, subject, templateName string,
	data map[string]any,
	maxAttempts int,
) (*QueuedEmail, error) {
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if data == nil {
		data = map[string]any{}
	}

	email := &QueuedEmail{
		ID:           uuid.New(),
		Recipient:    strings.TrimSpace(recipient),
		Subject:      subject,
		TemplateName: templateName,
		TemplateData: data,
		Status:       EmailStatusPending,
		MaxAttempts:  maxAttempts,
		CreatedAt:    time.Now().UTC(),
	}

	if err := email.Validate(); err != nil {
		return nil, err
	}

	return email, nil
}

// Validate checks that the QueuedEmail has valid data and satisfies the
// status/attempt invariants.
func (e *QueuedEmail) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyQueuedEmailID
	}
	if e.Recipient == "" {
		return ErrEmptyRecipient
	}
	if _, err := mail.ParseAddress(e.Recipient); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEmail, e.Recipient)
	}
	if e.Subject == "" {
		return ErrEmptySubject
	}
	if e.TemplateName == "" {
		return ErrEmptyTemplateName
	}
	if !isValidEmailStatus(e.Status) {
		return ErrInvalidEmailStatus
	}
	if e.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if e.Attempts < 0 || e.Attempts > e.MaxAttempts {
		return ErrAttemptsOutOfRange
	}
	if e.Status == EmailStatusSent && e.SentAt == nil {
		return ErrSentWithoutTimestamp
	}
	if e.Status == EmailStatusFailed && e.Attempts < e.MaxAttempts {
		return ErrFailedBeforeCeiling
	}
	return nil
}

// IsTerminal reports whether the email has left the pending state.
func (e *QueuedEmail) IsTerminal() bool {
	return e.Status == EmailStatusSent || e.Status == EmailStatusFailed
}

// IsDue reports whether the email may be attempted at now: it must be pending,
// below its attempt ceiling and past its backoff window.
func (e *QueuedEmail) IsDue(now time.Time) bool {
	if e.Status != EmailStatusPending || e.Attempts >= e.MaxAttempts {
		return false
	}
	if e.LastAttemptedAt == nil {
		return true
	}
	return e.LastAttemptedAt.Before(now.Add(-Backoff(e.Attempts)))
}

// MarkSent records a successful delivery attempt.
func (e *QueuedEmail) MarkSent(now time.Time) error {
	if e.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, EmailStatusSent)
	}
	if e.Attempts >= e.MaxAttempts {
		return ErrAttemptsOutOfRange
	}

	e.Attempts++
	e.Status = EmailStatusSent
	e.SentAt = &now
	e.LastAttemptedAt = &now
	return nil
}

// MarkFailedAttempt records a failed delivery attempt. The email becomes
// failed once its attempts reach the ceiling and stays pending otherwise.
// It returns the resulting status.
func (e *QueuedEmail) MarkFailedAttempt(message string, now time.Time) (EmailStatus, error) {
	if e.IsTerminal() {
		return e.Status, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, e.Status)
	}
	if e.Attempts >= e.MaxAttempts {
		return e.Status, ErrAttemptsOutOfRange
	}

	e.Attempts++
	e.LastError = &message
	e.LastAttemptedAt = &now
	if e.Attempts >= e.MaxAttempts {
		e.Status = EmailStatusFailed
	}
	return e.Status, nil
}

// Backoff returns the delay before an email with the given number of attempts
// may be retried: 2^attempts seconds.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	return time.Duration(math.Pow(2, float64(attempts))) * time.Second
}

// QueueStats summarizes the queue over a creation-time window.
// Retrying counts pending rows that have already failed at least once.
type QueueStats struct {
	Pending  int `json:"pending"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Retrying int `json:"retrying"`
}

// isValidEmailStatus checks if the given status is a valid EmailStatus.
func isValidEmailStatus(status EmailStatus) bool {
	switch status {
	case EmailStatusPending, EmailStatusSent, EmailStatusFailed:
		return true
	default:
		return false
	}
}
