package pgretry

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// Conn abstracts one live database session in the way the coordinator
// needs to drive it: explicit control over the implicit-transaction
// (auto-commit) mode, commit/rollback, and pass-through statement
// execution (used among other things for savepoints).
//
// A Conn is exclusively owned by its caller. The coordinator borrows it
// for the duration of one InTransaction call and never outlives that
// call. At most one transaction is open on a Conn at any time.
//
// Thread-Safety: NOT safe for concurrent use. Concurrency arises from
// multiple callers each holding their own Conn.
type Conn interface {
	// SetAutoCommit switches the session between implicit-transaction
	// mode (true, the default) and explicit-transaction mode (false).
	// Enabling auto-commit while a transaction is open commits it first.
	SetAutoCommit(ctx context.Context, autoCommit bool) error

	// AutoCommit reports the session's current auto-commit mode.
	AutoCommit(ctx context.Context) (bool, error)

	// Commit commits the open transaction. Only valid while auto-commit
	// is disabled.
	Commit(ctx context.Context) error

	// Rollback aborts the open transaction. Only valid while auto-commit
	// is disabled.
	Rollback(ctx context.Context) error

	// Exec executes a statement without returning rows. While auto-commit
	// is disabled, the first statement implicitly begins a transaction.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// QueryRow executes a query expected to return at most one row.
	// Always returns a non-nil Row; errors are deferred to Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Row represents a single row returned by QueryRow.
// This interface decouples from pgx.Row.
type Row interface {
	// Scan reads the values from the row into dest values.
	// Returns an error if no row was found or if the scan fails.
	Scan(dest ...any) error
}
