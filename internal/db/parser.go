package db

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vvka-141/pgretry/pkg/pgretry"
)

const defaultPort = 5432

// ParseConnectionString parses a PostgreSQL URI connection string and
// returns a ConnectionConfig.
//
// Format: postgresql://[user[:password]@][host][:port][/dbname][?param=value&...]
func ParseConnectionString(connStr string) (*pgretry.ConnectionConfig, error) {
	if connStr == "" {
		return nil, fmt.Errorf("connection string is empty: %w", pgretry.ErrInvalidConfig)
	}

	if !strings.HasPrefix(connStr, "postgresql://") && !strings.HasPrefix(connStr, "postgres://") {
		return nil, fmt.Errorf("unrecognized connection string format (expected postgresql:// URI): %w",
			pgretry.ErrInvalidConfig)
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	config := &pgretry.ConnectionConfig{
		Host: u.Hostname(),
		Port: defaultPort,
	}

	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
		}
		config.Port = port
	}

	if u.User != nil {
		config.Username = u.User.Username()
		if password, ok := u.User.Password(); ok {
			config.Password = password
		}
	}

	if dbName := strings.TrimPrefix(u.Path, "/"); dbName != "" {
		config.Database = dbName
	}

	if sslMode := u.Query().Get("sslmode"); sslMode != "" {
		config.SSLMode = sslMode
	}

	return config, nil
}

// BuildConnectionString renders a ConnectionConfig as a PostgreSQL URI
// suitable for pgxpool.ParseConfig.
func BuildConnectionString(config *pgretry.ConnectionConfig) string {
	u := &url.URL{
		Scheme: "postgresql",
		Host:   config.Host,
	}

	if config.Port != 0 && config.Port != defaultPort {
		u.Host = fmt.Sprintf("%s:%d", config.Host, config.Port)
	}

	if config.Username != "" {
		if config.Password != "" {
			u.User = url.UserPassword(config.Username, config.Password)
		} else {
			u.User = url.User(config.Username)
		}
	}

	if config.Database != "" {
		u.Path = "/" + config.Database
	}

	if config.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", config.SSLMode)
		u.RawQuery = q.Encode()
	}

	return u.String()
}
