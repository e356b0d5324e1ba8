package store

import (
	"context"
	"database/sql"
)

// DBTX is the query surface of the email queue and reminder stores. A
// *sql.Tx (via WithTx) keeps a processor batch inside one transaction; a
// *sql.DB runs each call on its own connection.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
