package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		notFound  bool
		duplicate bool
	}{
		{"nil", nil, false, false},
		{"generic", errors.New("boom"), false, false},
		{"not found", ErrNotFound, true, false},
		{"queued email not found", ErrQueuedEmailNotFound, true, false},
		{"wrapped queued email not found", fmt.Errorf("record success: %w", ErrQueuedEmailNotFound), true, false},
		{"duplicate", ErrDuplicate, false, true},
		{"wrapped duplicate", fmt.Errorf("enqueue: %w", ErrDuplicate), false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.notFound, IsNotFoundError(tc.err))
			assert.Equal(t, tc.duplicate, IsDuplicateError(tc.err))
		})
	}
}
