// Package postgres provides PostgreSQL implementations of the store interfaces
// and of the lock.Locker capability built on session-scoped advisory locks.
// It handles query execution, jsonb encoding of template data and mapping of
// PostgreSQL error codes to store sentinel errors.
package postgres
