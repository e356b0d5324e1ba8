package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/boardnotify/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"unique", &pgconn.PgError{Code: uniqueViolationCode}, store.ErrDuplicate},
		{"foreign key", &pgconn.PgError{Code: foreignKeyViolationCode}, store.ErrInvalidEntity},
		{"check", &pgconn.PgError{Code: checkViolationCode, ConstraintName: "email_queue_attempts_check"}, store.ErrInvalidEntity},
		{"not null", &pgconn.PgError{Code: notNullViolationCode, ColumnName: "recipient"}, store.ErrInvalidEntity},
		{"connection failure", &pgconn.PgError{Code: "08006"}, store.ErrUnavailable},
		{"conn done", fmt.Errorf("exec: %w", sql.ErrConnDone), store.ErrUnavailable},
		{"deadline", context.DeadlineExceeded, store.ErrUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mapped := MapError(tc.err)
			assert.ErrorIs(t, mapped, tc.want)
		})
	}

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, MapError(nil))
	})

	t.Run("unmapped passes through", func(t *testing.T) {
		t.Parallel()
		orig := errors.New("syntax error")
		assert.Equal(t, orig, MapError(orig))
	})
}

func TestViolationHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("x")))
	assert.True(t, IsCheckConstraintViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: checkViolationCode})))
	assert.False(t, IsCheckConstraintViolation(&pgconn.PgError{Code: uniqueViolationCode}))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckRowsAffected(sqlmock.NewResult(0, 1), store.ErrQueuedEmailNotFound))
	assert.ErrorIs(t, CheckRowsAffected(sqlmock.NewResult(0, 0), store.ErrQueuedEmailNotFound), store.ErrQueuedEmailNotFound)
	assert.ErrorIs(t, CheckRowsAffected(sqlmock.NewResult(0, 0), nil), store.ErrNotFound)
	assert.Error(t, CheckRowsAffected(sqlmock.NewErrorResult(errors.New("driver")), nil))
	assert.Error(t, CheckRowsAffected(nil, nil))
}
