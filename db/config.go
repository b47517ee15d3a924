package db

import "time"

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogQueries      bool
}

// DefaultConfig returns the settings used for the local sqlite file.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		MaxOpenConns: 1, // SQLite works best with single writer
		MaxIdleConns: 1,
	}
}
