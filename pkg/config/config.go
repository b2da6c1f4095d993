// Package config loads runtime settings from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the runtime configuration for chatmemo.
// Values are parsed from environment variables with the CHATMEMO_ prefix.
type Config struct {
	// DBPath points at the SQLite database file. Empty means the
	// OS-appropriate default location.
	DBPath string `envconfig:"DB_PATH" default:""`

	// EnableWAL turns on SQLite write-ahead logging.
	EnableWAL bool `envconfig:"WAL" default:"true"`

	// SyncPragma is the SQLite synchronous mode (OFF, NORMAL, FULL, EXTRA).
	SyncPragma string `envconfig:"SYNC_PRAGMA" default:"NORMAL"`

	// BackupDir is the default directory for saved backup documents.
	// Empty means the caller must pick a directory.
	BackupDir string `envconfig:"BACKUP_DIR" default:""`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("chatmemo", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}
