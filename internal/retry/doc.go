// Package retry implements the conflict-retrying transaction coordinator:
// a begin / run / commit wrapper that rolls back and re-attempts the unit
// of work when PostgreSQL reports a deadlock, with linear backoff and a
// bounded attempt budget.
//
// # Example Usage
//
//	classifier := retry.NewDeadlockClassifier()
//	strategy := retry.NewLinearBackoff(pgretry.DefaultMaxAttempts)
//	coord := retry.NewCoordinator(classifier, strategy, logger)
//
//	err := coord.InTransaction(ctx, conn, pgretry.LevelDefault,
//	    func(ctx context.Context, conn pgretry.Conn) error {
//	        _, err := conn.Exec(ctx, "UPDATE accounts SET balance = balance - $1 WHERE id = $2", amt, id)
//	        return err
//	    })
//
// # Guarantees
//
// The unit of work runs exactly once per attempt. Non-conflict errors
// propagate unchanged after a single attempt. The connection's
// auto-commit mode is restored on every exit path: success, give-up,
// and cancellation mid-backoff.
//
// # Thread Safety
//
// Coordinator instances are safe for concurrent use; each InTransaction
// call keeps all retry state (attempt counter, delays) local. The Conn
// passed to a call must not be shared with any other concurrent call.
package retry
