package pgretry

import (
	"errors"
	"fmt"
)

// IsolationLevel names a transaction isolation level for an
// InTransaction call. The coordinator records the requested level but
// does not change it on the session: locking behavior always follows
// the connection's default isolation.
type IsolationLevel int

const (
	// LevelDefault uses the connection's default isolation
	// (READ COMMITTED on a stock PostgreSQL server).
	LevelDefault IsolationLevel = iota
	LevelReadCommitted
	LevelRepeatableRead
	LevelSerializable
)

// String returns the SQL-standard name of the level.
func (l IsolationLevel) String() string {
	switch l {
	case LevelDefault:
		return "DEFAULT"
	case LevelReadCommitted:
		return "READ COMMITTED"
	case LevelRepeatableRead:
		return "REPEATABLE READ"
	case LevelSerializable:
		return "SERIALIZABLE"
	default:
		return fmt.Sprintf("IsolationLevel(%d)", int(l))
	}
}

// ConnectionConfig holds the parameters needed to reach a PostgreSQL
// server with standard username/password authentication.
type ConnectionConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	SSLMode  string
}

// Validate checks if the ConnectionConfig has all required fields.
// It returns a joined error if multiple validation failures occur.
func (c *ConnectionConfig) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, fmt.Errorf("host is required: %w", ErrInvalidConfig))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range: %w", c.Port, ErrInvalidConfig))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("database is required: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}
