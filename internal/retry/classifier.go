package retry

import (
	"github.com/vvka-141/pgretry/pkg/pgretry"
)

// maxCauseDepth caps cause-chain traversal. Chains are expected to be
// short; the cap guards against accidental Unwrap cycles.
const maxCauseDepth = 32

// sqlStater is satisfied by driver protocol errors that carry a
// SQLSTATE code, notably *pgconn.PgError.
type sqlStater interface {
	SQLState() string
}

// DeadlockClassifier implements pgretry.ErrorClassifier for PostgreSQL.
// An error is a retryable conflict iff any error in its cause chain is a
// database-protocol error with SQLSTATE 40P01 ("deadlock detected").
// Every other error, coded or not, is fatal.
//
// Serialization failures (40001) are deliberately not retried; the
// coordinator mirrors the reference deadlock-only behavior.
type DeadlockClassifier struct{}

// NewDeadlockClassifier creates a new DeadlockClassifier.
func NewDeadlockClassifier() *DeadlockClassifier {
	return &DeadlockClassifier{}
}

// IsRetryable walks the error's cause chain looking for SQLSTATE 40P01.
func (c *DeadlockClassifier) IsRetryable(err error) bool {
	return chainHasDeadlock(err, maxCauseDepth)
}

// chainHasDeadlock recursively walks err's causes, spending at most
// budget nodes across the whole traversal (including errors.Join
// branches). errors.As is not used here: it offers no way to bound the
// walk, and the budget must be shared across multi-error branches.
func chainHasDeadlock(err error, budget int) bool {
	for err != nil && budget > 0 {
		budget--

		if coded, ok := err.(sqlStater); ok {
			if coded.SQLState() == pgretry.DeadlockSQLState {
				return true
			}
		}

		switch x := err.(type) {
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		case interface{ Unwrap() []error }:
			for _, cause := range x.Unwrap() {
				if chainHasDeadlock(cause, budget) {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}
