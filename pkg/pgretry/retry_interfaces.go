package pgretry

import "time"

// ErrorClassifier decides whether a failed attempt hit a retryable
// multi-writer conflict or a fatal error.
type ErrorClassifier interface {
	// IsRetryable returns true if the error represents a transient
	// conflict (e.g. a deadlock reported by the database) and the
	// transaction should be rolled back and re-attempted.
	IsRetryable(err error) bool
}

// BackoffStrategy calculates the delay before the next retry attempt
// and bounds the retry budget.
type BackoffStrategy interface {
	// NextDelay returns the duration to wait before re-attempting.
	// attempt is the 1-indexed number of the attempt that just failed
	// (1 = first attempt failed, about to start the first retry).
	NextDelay(attempt int) time.Duration

	// MaxAttempts returns the total attempt budget, including the
	// initial attempt. The coordinator never invokes the unit of work
	// more than MaxAttempts times.
	MaxAttempts() int
}
