package history

import "fmt"

// Backends accepted by Config.Backend.
const (
	BackendJSONL         = "jsonl"
	BackendRotatingJSONL = "jsonl_rotating"
	BackendSQLite        = "sqlite"
	BackendNone          = "none"
)

// Config defines settings for estimate history storage and rotation.
type Config struct {
	// Backend selects the store type: "jsonl", "jsonl_rotating", "sqlite" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendJSONL
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendSQLite:
			c.Path = "estimates.db"
		default:
			c.Path = "estimates.jsonl"
		}
	}
	if c.Backend == BackendRotatingJSONL && c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendJSONL, BackendRotatingJSONL, BackendSQLite, BackendNone:
	default:
		return fmt.Errorf("unknown history backend %s", c.Backend)
	}
	if c.Backend != BackendNone && c.Path == "" {
		return fmt.Errorf("history path is required")
	}
	return nil
}

// NewStore opens the store selected by cfg. The "none" backend returns a
// store that discards records.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendJSONL:
		return NewJSONLStore(cfg.Path)
	case BackendRotatingJSONL:
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case BackendNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown history backend %s", cfg.Backend)
	}
}
