package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/vvka-141/pgretry/internal/config"
	"github.com/vvka-141/pgretry/internal/db"
	"github.com/vvka-141/pgretry/pkg/pgretry"
)

// connectionStringFromEnv returns the first non-empty connection string from
// PGRETRY_CONNECTION_STRING or DATABASE_URL environment variables.
func connectionStringFromEnv() string {
	if s := os.Getenv("PGRETRY_CONNECTION_STRING"); s != "" {
		return s
	}
	return os.Getenv("DATABASE_URL")
}

// isInteractive reports whether a human is at the terminal. Pipelines,
// CI, and explicit opt-outs suppress prompting.
func isInteractive() bool {
	if os.Getenv("PGRETRY_NON_INTERACTIVE") == "1" {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(username string) (string, error) {
	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// resolveConnection resolves the target connection from, in order of
// precedence: the --connection flag, PGRETRY_CONNECTION_STRING or
// DATABASE_URL, then the pgretry.yaml connection block. A missing
// password is taken from $PGPASSWORD, or prompted for when the session
// is interactive.
func resolveConnection(
	connStringFlag string,
	projectConfig *config.ProjectConfig,
	verbose bool,
) (*pgretry.ConnectionConfig, error) {
	connString := connStringFlag
	if connString == "" {
		connString = connectionStringFromEnv()
	}

	var connConfig *pgretry.ConnectionConfig
	switch {
	case connString != "":
		parsed, err := db.ParseConnectionString(connString)
		if err != nil {
			return nil, err
		}
		connConfig = parsed
	case projectConfig != nil:
		connConfig = projectConfig.ConnectionSettings()
	default:
		return nil, fmt.Errorf("no connection configured: %w\n"+
			"Provide via:\n"+
			"  1. --connection \"postgresql://user@host/mydb\"\n"+
			"  2. Environment variable: export DATABASE_URL=postgresql://user@host/mydb\n"+
			"  3. A %s file with a connection block", pgretry.ErrInvalidConfig, config.ConfigFileName)
	}

	if connConfig.Password == "" {
		connConfig.Password = os.Getenv("PGPASSWORD")
	}
	if connConfig.Password == "" && isInteractive() {
		password, err := promptPassword(connConfig.Username)
		if err != nil {
			return nil, err
		}
		connConfig.Password = password
	}

	if err := connConfig.Validate(); err != nil {
		return nil, err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved:\n")
		fmt.Fprintf(os.Stderr, "  Host: %s\n", connConfig.Host)
		fmt.Fprintf(os.Stderr, "  Port: %d\n", connConfig.Port)
		fmt.Fprintf(os.Stderr, "  User: %s\n", connConfig.Username)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", connConfig.Database)
	}

	return connConfig, nil
}

// loadProjectConfig loads pgretry.yaml from the working directory. A
// missing file is not an error; the connection must then come from
// flags or the environment.
func loadProjectConfig() (*config.ProjectConfig, error) {
	cfg, err := config.Load(".")
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return cfg, nil
}
