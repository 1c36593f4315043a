package retry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func deadlockErr() *pgconn.PgError {
	return &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
}

func TestDeadlockClassifier_NilError(t *testing.T) {
	c := NewDeadlockClassifier()

	if c.IsRetryable(nil) {
		t.Error("nil error must not be retryable")
	}
}

func TestDeadlockClassifier_DeadlockCode(t *testing.T) {
	c := NewDeadlockClassifier()

	if !c.IsRetryable(deadlockErr()) {
		t.Error("SQLSTATE 40P01 must be retryable")
	}
}

func TestDeadlockClassifier_OtherCodes(t *testing.T) {
	c := NewDeadlockClassifier()

	tests := []struct {
		name string
		code string
	}{
		{"serialization failure", "40001"},
		{"syntax error", "42601"},
		{"unique violation", "23505"},
		{"connection failure", "08006"},
		{"lock not available", "55P03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &pgconn.PgError{Code: tt.code, Message: tt.name}
			if c.IsRetryable(err) {
				t.Errorf("SQLSTATE %s must not be retryable", tt.code)
			}
		})
	}
}

func TestDeadlockClassifier_PlainError(t *testing.T) {
	c := NewDeadlockClassifier()

	if c.IsRetryable(errors.New("deadlock detected")) {
		t.Error("an uncoded error must not be retryable, even if the text mentions deadlock")
	}
}

func TestDeadlockClassifier_WrappedDeadlock(t *testing.T) {
	c := NewDeadlockClassifier()

	err := fmt.Errorf("update row: %w", fmt.Errorf("exec: %w", deadlockErr()))
	if !c.IsRetryable(err) {
		t.Error("deadlock buried in a wrap chain must be retryable")
	}
}

func TestDeadlockClassifier_JoinedErrors(t *testing.T) {
	c := NewDeadlockClassifier()

	err := errors.Join(errors.New("handler failed"), deadlockErr())
	if !c.IsRetryable(err) {
		t.Error("deadlock in a joined error branch must be retryable")
	}

	err = errors.Join(errors.New("a"), errors.New("b"))
	if c.IsRetryable(err) {
		t.Error("joined errors without a deadlock must not be retryable")
	}
}

func TestDeadlockClassifier_DepthCap(t *testing.T) {
	c := NewDeadlockClassifier()

	// Bury the deadlock deeper than the traversal budget.
	var err error = deadlockErr()
	for i := 0; i < maxCauseDepth+4; i++ {
		err = fmt.Errorf("layer %d: %w", i, err)
	}
	if c.IsRetryable(err) {
		t.Error("traversal must stop at the depth cap")
	}
}

// cyclicError unwraps to itself; the classifier must still terminate.
type cyclicError struct{}

func (e *cyclicError) Error() string { return "cyclic" }
func (e *cyclicError) Unwrap() error { return e }

func TestDeadlockClassifier_CyclicChain(t *testing.T) {
	c := NewDeadlockClassifier()

	if c.IsRetryable(&cyclicError{}) {
		t.Error("cyclic chain must classify as non-retryable")
	}
}
