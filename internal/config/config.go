package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgretry/pkg/pgretry"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConnectionConfig is the yaml shape of the connection block.
type ConnectionConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode,omitempty"`
}

// RetryConfig is the yaml shape of the retry block. Zero values fall
// back to the pgretry defaults.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget, including the initial attempt.
	MaxAttempts int `yaml:"max_attempts,omitempty"`
	// BackoffStep is the per-attempt backoff increment, as a duration
	// string like "50ms".
	BackoffStep string `yaml:"backoff_step,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Retry      RetryConfig      `yaml:"retry,omitempty"`
}

const ConfigFileName = "pgretry.yaml"

func Load(sourcePath string) (*ProjectConfig, error) {
	configPath := filepath.Join(sourcePath, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConnectionSettings converts the yaml connection block into the
// runtime ConnectionConfig. The password never lives in the file; it
// comes from the environment or a prompt.
func (c *ProjectConfig) ConnectionSettings() *pgretry.ConnectionConfig {
	return &pgretry.ConnectionConfig{
		Host:     c.Connection.Host,
		Port:     c.Connection.Port,
		Username: c.Connection.Username,
		Database: c.Connection.Database,
		SSLMode:  c.Connection.SSLMode,
	}
}

// RetrySettings resolves the retry block against the defaults.
func (c *ProjectConfig) RetrySettings() (maxAttempts int, backoffStep time.Duration, err error) {
	maxAttempts = pgretry.DefaultMaxAttempts
	backoffStep = pgretry.DefaultBackoffStep

	if c.Retry.MaxAttempts != 0 {
		if c.Retry.MaxAttempts < 1 {
			return 0, 0, fmt.Errorf("max_attempts must be at least 1: %w", pgretry.ErrInvalidConfig)
		}
		maxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.BackoffStep != "" {
		parsed, parseErr := time.ParseDuration(c.Retry.BackoffStep)
		if parseErr != nil {
			return 0, 0, fmt.Errorf("invalid backoff_step %q: %w", c.Retry.BackoffStep, pgretry.ErrInvalidConfig)
		}
		if parsed <= 0 {
			return 0, 0, fmt.Errorf("backoff_step must be positive: %w", pgretry.ErrInvalidConfig)
		}
		backoffStep = parsed
	}

	return maxAttempts, backoffStep, nil
}
