// Package pgretry defines the public contract for the deadlock-retrying
// transaction coordinator: the connection abstraction it drives, the
// classifier and backoff strategy interfaces it consumes, and the error
// types callers can match with errors.Is/errors.As.
//
// Concrete implementations live under internal/retry (coordinator,
// classifier, backoff) and internal/db (pgx-backed connection adapter).
//
// # Retry Model
//
// A unit of work handed to the coordinator is re-invoked in full on every
// attempt. The database rolls back in-database effects of an aborted
// attempt, but purely in-process side effects (counters, appends to
// slices) are NOT undone. Units of work must therefore be safe to run
// multiple times.
package pgretry
