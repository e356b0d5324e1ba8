// Package mail defines the transport capability the engine uses to deliver a
// rendered email, plus a log-only transport for development.
package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned by Verify when a transport lacks the settings
// it needs to send.
var ErrNotConfigured = errors.New("mail transport not configured")

// Message is one rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Result is the outcome of a send. A transport reports provider rejections
// with Success false and Error set; a returned error means the call itself
// failed. Both are treated as a failed attempt by callers.
type Result struct {
	Success   bool
	Error     string
	MessageID string
}

// Transport delivers email. Implementations must be safe to retry.
type Transport interface {
	Send(ctx context.Context, msg Message) (*Result, error)
	// Verify is a cheap connectivity check run before a batch of sends.
	Verify(ctx context.Context) error
}

// LogTransport logs each message instead of sending it.
type LogTransport struct {
	logger *slog.Logger
	sent   atomic.Int64
}

// NewLogTransport creates a LogTransport. If logger is nil, the default logger is used.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger.With(slog.String("component", "log_transport"))}
}

// Ensure LogTransport implements Transport interface
var _ Transport = (*LogTransport)(nil)

// Send implements Transport.Send
func (t *LogTransport) Send(ctx context.Context, msg Message) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	t.sent.Add(1)
	t.logger.InfoContext(ctx, "email delivered to log",
		slog.String("message_id", id),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("html_bytes", len(msg.HTML)),
		slog.Int("text_bytes", len(msg.Text)))

	return &Result{Success: true, MessageID: id}, nil
}

// Verify implements Transport.Verify
func (t *LogTransport) Verify(ctx context.Context) error {
	return ctx.Err()
}

// Sent returns the number of messages logged so far.
func (t *LogTransport) Sent() int64 {
	return t.sent.Load()
}
