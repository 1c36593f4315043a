package retry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgretry/internal/logging"
	"github.com/vvka-141/pgretry/pkg/pgretry"
)

// UnitOfWork is the caller-supplied transaction body. It is invoked
// exactly once per attempt with the borrowed connection; on retry it is
// re-invoked in full, so it must be safe to run multiple times.
type UnitOfWork func(ctx context.Context, conn pgretry.Conn) error

// Coordinator wraps begin / run / commit with rollback-and-retry
// semantics for deadlock conflicts. See the package documentation for
// the retry model and guarantees.
type Coordinator struct {
	classifier pgretry.ErrorClassifier
	strategy   pgretry.BackoffStrategy
	logger     pgretry.Logger
}

// NewCoordinator creates a new transaction coordinator.
// Panics if classifier or strategy is nil; a nil logger falls back to
// the null logger.
func NewCoordinator(
	classifier pgretry.ErrorClassifier,
	strategy pgretry.BackoffStrategy,
	logger pgretry.Logger,
) *Coordinator {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Coordinator{
		classifier: classifier,
		strategy:   strategy,
		logger:     logger,
	}
}

// InTransaction runs fn inside a transaction on conn, retrying on
// deadlock with linear backoff until the attempt budget is spent.
//
// Non-conflict errors, and conflict errors once the budget is exhausted,
// are returned to the caller unchanged. Cancellation during the backoff
// sleep returns an error matching both pgretry.ErrRetryInterrupted and
// ctx.Err(). On every exit path the connection's auto-commit mode is
// restored to what it was when the call started.
//
// The level is recorded for diagnostics only; locking behavior follows
// the connection's default isolation.
func (c *Coordinator) InTransaction(
	ctx context.Context,
	conn pgretry.Conn,
	level pgretry.IsolationLevel,
	fn UnitOfWork,
) error {
	origAutoCommit, err := conn.AutoCommit(ctx)
	if err != nil {
		return &pgretry.TxControlError{Op: "check transaction status", Err: err}
	}
	if level != pgretry.LevelDefault {
		c.logger.Verbose("isolation level %s requested; connection default applies", level)
	}

	maxAttempts := c.strategy.MaxAttempts()
	attempt := 0
	for {
		attempt++

		// Switching into explicit-transaction mode failing is fatal:
		// there is nothing to roll back and nothing worth retrying.
		if err := conn.SetAutoCommit(ctx, false); err != nil {
			return &pgretry.TxControlError{Op: "begin transaction", Err: err}
		}

		err := fn(ctx, conn)
		if err == nil {
			err = conn.Commit(ctx)
			if err == nil {
				c.restoreAutoCommit(ctx, conn, origAutoCommit)
				return nil
			}
			// Commit failure enters the same classify/retry path as a
			// failing unit of work.
		}

		if rbErr := conn.Rollback(ctx); rbErr != nil {
			// Best-effort: the original error still drives the decision.
			c.logger.Error("rollback after failed attempt %d: %v", attempt, rbErr)
		}

		retryable := c.classifier.IsRetryable(err)
		if attempt < maxAttempts && retryable {
			delay := c.strategy.NextDelay(attempt)
			c.logger.Verbose("deadlock detected on attempt %d, retrying in %v", attempt, delay)

			if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
				c.restoreAutoCommit(ctx, conn, origAutoCommit)
				return fmt.Errorf("%w after attempt %d: %w",
					pgretry.ErrRetryInterrupted, attempt, sleepErr)
			}
			continue
		}

		if retryable {
			c.logger.Verbose("giving up after %d attempts: %v", attempt, err)
		}
		c.restoreAutoCommit(ctx, conn, origAutoCommit)
		return err
	}
}

// InTransactionResult is the result-carrying form of
// Coordinator.InTransaction for units of work that produce a value.
func InTransactionResult[T any](
	ctx context.Context,
	c *Coordinator,
	conn pgretry.Conn,
	level pgretry.IsolationLevel,
	fn func(ctx context.Context, conn pgretry.Conn) (T, error),
) (T, error) {
	var result T
	err := c.InTransaction(ctx, conn, level, func(ctx context.Context, conn pgretry.Conn) error {
		r, err := fn(ctx, conn)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// sleep waits for delay, aborting early when ctx is cancelled.
func (c *Coordinator) sleep(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// restoreAutoCommit puts the connection back into its original
// transactional mode. Failures are logged, never raised: restoration
// runs during cleanup, after the decisive error is already known.
// context.WithoutCancel keeps cleanup working after cancellation.
func (c *Coordinator) restoreAutoCommit(ctx context.Context, conn pgretry.Conn, autoCommit bool) {
	if err := conn.SetAutoCommit(context.WithoutCancel(ctx), autoCommit); err != nil {
		c.logger.Error("failed to restore auto-commit mode: %v", err)
	}
}

// Begin switches conn into explicit-transaction mode without any retry
// handling. Exposed for composability with nested units of work.
func (c *Coordinator) Begin(ctx context.Context, conn pgretry.Conn) error {
	if err := conn.SetAutoCommit(ctx, false); err != nil {
		return &pgretry.TxControlError{Op: "begin transaction", Err: err}
	}
	return nil
}

// Commit commits the open transaction on conn. Non-retrying.
func (c *Coordinator) Commit(ctx context.Context, conn pgretry.Conn) error {
	if err := conn.Commit(ctx); err != nil {
		return &pgretry.TxControlError{Op: "commit transaction", Err: err}
	}
	return nil
}

// Rollback aborts the open transaction on conn. Non-retrying.
func (c *Coordinator) Rollback(ctx context.Context, conn pgretry.Conn) error {
	if err := conn.Rollback(ctx); err != nil {
		return &pgretry.TxControlError{Op: "rollback transaction", Err: err}
	}
	return nil
}

// IsInTransaction reports whether conn is in explicit-transaction mode
// (auto-commit disabled).
func (c *Coordinator) IsInTransaction(ctx context.Context, conn pgretry.Conn) (bool, error) {
	autoCommit, err := conn.AutoCommit(ctx)
	if err != nil {
		return false, &pgretry.TxControlError{Op: "check transaction status", Err: err}
	}
	return !autoCommit, nil
}

// Savepoint establishes a savepoint with the given name inside the
// current transaction.
func (c *Coordinator) Savepoint(ctx context.Context, conn pgretry.Conn, name string) error {
	if _, err := conn.Exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize()); err != nil {
		return &pgretry.TxControlError{Op: "create savepoint", Err: err}
	}
	return nil
}

// RollbackToSavepoint rolls the current transaction back to the named
// savepoint.
func (c *Coordinator) RollbackToSavepoint(ctx context.Context, conn pgretry.Conn, name string) error {
	if _, err := conn.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{name}.Sanitize()); err != nil {
		return &pgretry.TxControlError{Op: "rollback to savepoint", Err: err}
	}
	return nil
}

// ReleaseSavepoint destroys the named savepoint, keeping its effects.
func (c *Coordinator) ReleaseSavepoint(ctx context.Context, conn pgretry.Conn, name string) error {
	if _, err := conn.Exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{name}.Sanitize()); err != nil {
		return &pgretry.TxControlError{Op: "release savepoint", Err: err}
	}
	return nil
}

// SavepointName generates a unique savepoint identifier, for nested
// units of work that need collision-free savepoints.
func SavepointName() string {
	return "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "_")
}
