package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgretry/pkg/pgretry"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns limits concurrent connections to prevent resource
	// exhaustion; each coordinator invocation holds one connection.
	DefaultMaxConns = 5

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps connections alive between bursts of
	// contending transactions to avoid reconnection overhead.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
}

// Connect establishes a connection pool for the given configuration and
// verifies it with a ping. Connection retry is deliberately absent here:
// the retry policy of this module is deadlock-only and lives in the
// coordinator.
func Connect(ctx context.Context, config *pgretry.ConnectionConfig) (*pgxpool.Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return ConnectString(ctx, BuildConnectionString(config))
}

// ConnectString establishes a connection pool from a raw PostgreSQL URI.
func ConnectString(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	configurePool(poolConfig)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, poolConfig)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, poolConfig)
	}

	return pool, nil
}

func wrapConnectionError(err error, poolConfig *pgxpool.Config) error {
	cc := poolConfig.ConnConfig
	return fmt.Errorf("%w: %s:%d/%s: %v",
		pgretry.ErrConnectionFailed, cc.Host, cc.Port, cc.Database, err)
}
