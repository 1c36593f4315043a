package retry

import (
	"time"

	"github.com/vvka-141/pgretry/pkg/pgretry"
)

// LinearBackoff implements pgretry.BackoffStrategy with a delay that
// grows linearly: the sleep before retry k (1-indexed) is step * k.
// The delay is strictly increasing with the attempt number and is at
// least one full step before the first retry.
type LinearBackoff struct {
	// step is the backoff increment per failed attempt
	step time.Duration

	// maxAttempts is the total attempt budget, including the initial attempt
	maxAttempts int
}

// BackoffOption is a functional option for configuring LinearBackoff.
type BackoffOption func(*LinearBackoff)

// WithStep sets the backoff increment per failed attempt.
func WithStep(d time.Duration) BackoffOption {
	return func(b *LinearBackoff) {
		b.step = d
	}
}

// NewLinearBackoff creates a linear backoff strategy with the given
// total attempt budget. The step defaults to pgretry.DefaultBackoffStep.
//
// Example:
//
//	strategy := retry.NewLinearBackoff(5, retry.WithStep(50*time.Millisecond))
func NewLinearBackoff(maxAttempts int, opts ...BackoffOption) *LinearBackoff {
	b := &LinearBackoff{
		step:        pgretry.DefaultBackoffStep,
		maxAttempts: maxAttempts,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NextDelay returns step * attempt, where attempt is the 1-indexed
// number of the attempt that just failed.
func (b *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return b.step * time.Duration(attempt)
}

// MaxAttempts returns the total attempt budget.
func (b *LinearBackoff) MaxAttempts() int {
	return b.maxAttempts
}

// Step returns the backoff increment for tests and debugging.
func (b *LinearBackoff) Step() time.Duration {
	return b.step
}
