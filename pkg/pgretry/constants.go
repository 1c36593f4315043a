package pgretry

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Operation completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to database
	ExitInterrupted     = 12 // Cancelled while waiting to retry
)

const (
	// DeadlockSQLState is the PostgreSQL SQLSTATE code for
	// "deadlock detected". It is the only code the coordinator
	// treats as a retryable conflict.
	// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
	DeadlockSQLState = "40P01"

	// DefaultMaxAttempts is the default total attempt budget for one
	// coordinator invocation, including the initial attempt.
	DefaultMaxAttempts = 5

	// DefaultBackoffStep is the default backoff increment: the sleep
	// before retry k is DefaultBackoffStep * k.
	DefaultBackoffStep = 50 * time.Millisecond
)
