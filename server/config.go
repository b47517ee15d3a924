package server

import (
	"time"

	"github.com/xiaoyuanzhu-com/claudechat/config"
)

// Config holds server configuration
type Config struct {
	Port int
	Host string
	Env  string // "development" or "production"

	// Re-sync the history cache when transcripts change on disk
	WatchEnabled  bool
	WatchDebounce time.Duration

	// Origins allowed to call the API from a browser in development
	AllowedOrigins []string
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// FromAppConfig derives server settings from the application config.
func FromAppConfig(cfg *config.Config) *Config {
	return &Config{
		Port:          cfg.Port,
		Host:          cfg.Host,
		Env:           cfg.Env,
		WatchEnabled:  true,
		WatchDebounce: cfg.WatchDebounce,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
	}
}
