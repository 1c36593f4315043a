// Package harness provokes a real two-writer deadlock against a live
// PostgreSQL server and reports how the transaction coordinator
// resolved it. Two workers on separate connections update the same two
// rows in opposite orders, synchronized so each holds its first row
// lock before either requests its second; PostgreSQL then aborts one of
// them with SQLSTATE 40P01 and the coordinator's retry lets both finish.
package harness

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgretry/internal/db"
	"github.com/vvka-141/pgretry/internal/logging"
	"github.com/vvka-141/pgretry/internal/retry"
	"github.com/vvka-141/pgretry/pkg/pgretry"
)

// DemoTable is the table the harness creates and contends on.
const DemoTable = "pgretry_demo"

const (
	// DefaultRows seeded into the demo table.
	DefaultRows = 100

	// DefaultStall is how long each worker pauses after the rendezvous,
	// giving its peer time to take the first row lock before the second
	// is requested. Without it the deadlock window is too narrow to hit
	// reliably.
	DefaultStall = 100 * time.Millisecond
)

// Config tunes one harness run. Zero values fall back to the defaults.
type Config struct {
	Rows  int
	Stall time.Duration
}

// WorkerResult reports one worker's outcome.
type WorkerResult struct {
	// Attempts is how many times the unit of work ran, including the
	// successful one.
	Attempts int
	Err      error
}

// Result reports the outcome of one contention run.
type Result struct {
	RunID   uuid.UUID
	Workers [2]WorkerResult
	// FirstValue and LastValue are the final values of the two contended
	// rows. Each worker logically increments both rows once, so both
	// must equal 2 after a clean run regardless of how many attempts the
	// retries consumed.
	FirstValue int
	LastValue  int
	Elapsed    time.Duration
}

// TotalAttempts sums both workers' attempt counts. A value above 2 is
// the evidence that a deadlock occurred and was retried.
func (r *Result) TotalAttempts() int {
	return r.Workers[0].Attempts + r.Workers[1].Attempts
}

// Succeeded reports whether both workers committed.
func (r *Result) Succeeded() bool {
	return r.Workers[0].Err == nil && r.Workers[1].Err == nil
}

// Harness owns one contention scenario over a connection pool.
type Harness struct {
	pool   *pgxpool.Pool
	coord  *retry.Coordinator
	logger pgretry.Logger
	cfg    Config
}

// New creates a harness. Panics if pool or coord is nil; a nil logger
// falls back to the null logger.
func New(pool *pgxpool.Pool, coord *retry.Coordinator, logger pgretry.Logger, cfg Config) *Harness {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if coord == nil {
		panic("coordinator cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if cfg.Rows <= 1 {
		cfg.Rows = DefaultRows
	}
	if cfg.Stall <= 0 {
		cfg.Stall = DefaultStall
	}
	return &Harness{pool: pool, coord: coord, logger: logger, cfg: cfg}
}

// Run seeds the demo table and races the two workers. Setup failures
// are returned as an error; worker outcomes, including failures, are
// reported in the Result.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	if err := h.seed(ctx); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.New()}
	h.logger.Verbose("contention run %s: %d rows, %v stall", result.RunID, h.cfg.Rows, h.cfg.Stall)

	first, last := 1, h.cfg.Rows
	rendezvous := newLatch(2)

	var wg sync.WaitGroup
	start := time.Now()
	for i, order := range [2][2]int{{first, last}, {last, first}} {
		wg.Add(1)
		go func(worker int, rowA, rowB int) {
			defer wg.Done()
			attempts, err := h.runWorker(ctx, worker, rowA, rowB, rendezvous)
			result.Workers[worker] = WorkerResult{Attempts: attempts, Err: err}
		}(i, order[0], order[1])
	}
	wg.Wait()
	result.Elapsed = time.Since(start)

	for i, w := range result.Workers {
		if w.Err != nil {
			h.logger.Error("worker %d failed after %d attempt(s): %v", i, w.Attempts, w.Err)
		} else {
			h.logger.Info("worker %d committed after %d attempt(s)", i, w.Attempts)
		}
	}

	if err := h.readRow(ctx, first, &result.FirstValue); err != nil {
		return nil, err
	}
	if err := h.readRow(ctx, last, &result.LastValue); err != nil {
		return nil, err
	}

	return result, nil
}

// runWorker executes one side of the deadlock inside the coordinator.
// The unit of work is re-run in full on retry, so the attempt counter
// lives outside it and the rendezvous tolerates re-arrival.
func (h *Harness) runWorker(ctx context.Context, worker, rowA, rowB int, rendezvous *latch) (int, error) {
	conn, err := h.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	sess := db.NewSessionConn(conn)

	var attempts atomic.Int32
	err = h.coord.InTransaction(ctx, sess, pgretry.LevelDefault,
		func(ctx context.Context, conn pgretry.Conn) error {
			attempt := attempts.Add(1)
			h.logger.Verbose("worker %d (attempt %d): updating row %d", worker, attempt, rowA)
			if err := h.increment(ctx, conn, rowA); err != nil {
				return err
			}

			rendezvous.arrive()
			if err := rendezvous.wait(ctx); err != nil {
				return err
			}

			if err := h.pause(ctx); err != nil {
				return err
			}

			h.logger.Verbose("worker %d (attempt %d): updating row %d", worker, attempt, rowB)
			return h.increment(ctx, conn, rowB)
		})

	return int(attempts.Load()), err
}

func (h *Harness) increment(ctx context.Context, conn pgretry.Conn, id int) error {
	_, err := conn.Exec(ctx, "UPDATE "+DemoTable+" SET value = value + 1 WHERE id = $1", id)
	return err
}

func (h *Harness) pause(ctx context.Context) error {
	timer := time.NewTimer(h.cfg.Stall)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// seed (re)creates the demo table with cfg.Rows rows, all zero.
func (h *Harness) seed(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx,
		"CREATE TABLE IF NOT EXISTS "+DemoTable+" (id INT PRIMARY KEY, value INT NOT NULL)"); err != nil {
		return fmt.Errorf("create demo table: %w", err)
	}
	if _, err := h.pool.Exec(ctx, "TRUNCATE "+DemoTable); err != nil {
		return fmt.Errorf("truncate demo table: %w", err)
	}
	if _, err := h.pool.Exec(ctx,
		"INSERT INTO "+DemoTable+" SELECT i, 0 FROM generate_series(1, $1) AS i", h.cfg.Rows); err != nil {
		return fmt.Errorf("seed demo table: %w", err)
	}
	return nil
}

func (h *Harness) readRow(ctx context.Context, id int, dest *int) error {
	if err := h.pool.QueryRow(ctx,
		"SELECT value FROM "+DemoTable+" WHERE id = $1", id).Scan(dest); err != nil {
		return fmt.Errorf("read row %d: %w", id, err)
	}
	return nil
}
