package config

import (
	"fmt"

	corelog "github.com/kilianp07/evrange/core/logger"
)

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level name.
func (c LogConfig) Validate() error {
	if !corelog.ValidLevel(c.Level) {
		return fmt.Errorf("unknown level %s", c.Level)
	}
	return nil
}

// HTTPConfig configures the estimate API server.
type HTTPConfig struct {
	Addr     string `json:"addr"`
	Disabled bool   `json:"disabled"`
	// Token, when set, must be sent as "Bearer <token>" to read the history.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
