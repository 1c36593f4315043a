package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgretry/pkg/pgretry"
)

// Querier is the subset of pgx connection behavior SessionConn drives.
// Both *pgx.Conn and *pgxpool.Conn satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionConn implements pgretry.Conn over one pgx connection,
// emulating driver auto-commit semantics:
//
//   - While auto-commit is enabled (the initial state) every statement
//     runs in its own implicit transaction.
//   - While auto-commit is disabled, the first statement lazily issues
//     BEGIN; the transaction stays open until Commit or Rollback.
//   - Re-enabling auto-commit with a transaction open commits it first.
//
// The auto-commit flag is tracked locally; the server is only ever sent
// BEGIN/COMMIT/ROLLBACK.
//
// Thread-Safety: NOT safe for concurrent use. Each coordinator
// invocation must hold its own SessionConn over its own connection.
type SessionConn struct {
	q          Querier
	autoCommit bool
	inTx       bool
}

// NewSessionConn wraps q in a SessionConn starting in auto-commit mode.
// Panics if q is nil.
func NewSessionConn(q Querier) *SessionConn {
	if q == nil {
		panic("querier cannot be nil")
	}
	return &SessionConn{q: q, autoCommit: true}
}

// SetAutoCommit switches the session's transactional mode.
// Enabling auto-commit while a transaction is open commits it first;
// that commit failing leaves the mode unchanged.
func (s *SessionConn) SetAutoCommit(ctx context.Context, autoCommit bool) error {
	if autoCommit == s.autoCommit {
		return nil
	}
	if autoCommit && s.inTx {
		if _, err := s.q.Exec(ctx, "COMMIT"); err != nil {
			return err
		}
		s.inTx = false
	}
	s.autoCommit = autoCommit
	return nil
}

// AutoCommit reports the session's current auto-commit mode.
func (s *SessionConn) AutoCommit(ctx context.Context) (bool, error) {
	return s.autoCommit, nil
}

// Commit commits the open transaction. Commit with no statement
// executed yet is a no-op: nothing was begun, nothing to commit.
func (s *SessionConn) Commit(ctx context.Context) error {
	if s.autoCommit {
		return fmt.Errorf("commit while auto-commit is enabled")
	}
	if !s.inTx {
		return nil
	}
	if _, err := s.q.Exec(ctx, "COMMIT"); err != nil {
		// Leave inTx set: the caller's rollback must still reach the server.
		return err
	}
	s.inTx = false
	return nil
}

// Rollback aborts the open transaction. Rollback with no statement
// executed yet is a no-op. The transaction is considered closed even if
// the server rejects the ROLLBACK, so cleanup can proceed.
func (s *SessionConn) Rollback(ctx context.Context) error {
	if s.autoCommit {
		return fmt.Errorf("rollback while auto-commit is enabled")
	}
	if !s.inTx {
		return nil
	}
	s.inTx = false
	if _, err := s.q.Exec(ctx, "ROLLBACK"); err != nil {
		return err
	}
	return nil
}

// Exec executes a statement, lazily beginning a transaction when
// auto-commit is disabled.
func (s *SessionConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if err := s.ensureTx(ctx); err != nil {
		return pgconn.CommandTag{}, err
	}
	return s.q.Exec(ctx, sql, args...)
}

// QueryRow executes a query expected to return at most one row, lazily
// beginning a transaction when auto-commit is disabled. Errors,
// including a failed BEGIN, are deferred to Scan.
func (s *SessionConn) QueryRow(ctx context.Context, sql string, args ...any) pgretry.Row {
	if err := s.ensureTx(ctx); err != nil {
		return errRow{err: err}
	}
	return s.q.QueryRow(ctx, sql, args...)
}

func (s *SessionConn) ensureTx(ctx context.Context) error {
	if s.autoCommit || s.inTx {
		return nil
	}
	if _, err := s.q.Exec(ctx, "BEGIN"); err != nil {
		return fmt.Errorf("implicit begin: %w", err)
	}
	s.inTx = true
	return nil
}

// errRow defers a statement-setup error to Scan.
type errRow struct {
	err error
}

func (r errRow) Scan(dest ...any) error {
	return r.err
}
