package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/mail"
)

// MockTransport implements mail.Transport for testing and records every
// message it is asked to send.
type MockTransport struct {
	SendFn   func(ctx context.Context, msg mail.Message) (*mail.Result, error)
	VerifyFn func(ctx context.Context) error

	mu   sync.Mutex
	sent []mail.Message
}

// Ensure MockTransport implements mail.Transport interface
var _ mail.Transport = (*MockTransport)(nil)

// Send implements the Transport interface. By default every send succeeds.
func (m *MockTransport) Send(ctx context.Context, msg mail.Message) (*mail.Result, error) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	if m.SendFn != nil {
		return m.SendFn(ctx, msg)
	}
	return &mail.Result{Success: true, MessageID: uuid.NewString()}, nil
}

// Verify implements the Transport interface
func (m *MockTransport) Verify(ctx context.Context) error {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx)
	}
	return nil
}

// Sent returns the messages passed to Send.
func (m *MockTransport) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.sent))
	copy(out, m.sent)
	return out
}
