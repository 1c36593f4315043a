package pgretry

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
var (
	// ErrRetryInterrupted indicates the backoff sleep between retry
	// attempts was cancelled. It is distinct from the conflict error
	// that triggered the retry; the wrapped chain also carries the
	// context's own error (context.Canceled or DeadlineExceeded).
	ErrRetryInterrupted = errors.New("interrupted during retry backoff")

	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")
)

// TxControlError reports the failure of a transaction-control operation
// (begin, commit, rollback, savepoint handling) performed outside the
// coordinator's classify/retry decision. The underlying driver error is
// available via Unwrap.
type TxControlError struct {
	// Op names the failed operation, e.g. "begin transaction" or
	// "create savepoint".
	Op  string
	Err error
}

func (e *TxControlError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *TxControlError) Unwrap() error {
	return e.Err
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known
// errors, and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrRetryInterrupted):
		return ExitInterrupted
	}

	// Check for common connection error patterns
	errStr := err.Error()
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
