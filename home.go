package ual

import (
	"os"
	"path/filepath"
)

// Home returns the UAL home directory.
// It defaults to ~/.ual but can be overridden with the UAL_HOME environment variable.
func Home() string {
	if v := os.Getenv("UAL_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ual")
}

// DefaultCachePath returns the default build cache database path (~/.ual/cache.db).
func DefaultCachePath() string {
	return filepath.Join(Home(), "cache.db")
}

// DefaultConfigPath returns the project config file looked up by the CLI (./ual.yaml).
func DefaultConfigPath() string {
	return "ual.yaml"
}

// EnsureHome creates the UAL home directory if it doesn't exist.
func EnsureHome() error {
	return os.MkdirAll(Home(), 0o755)
}
