package config

import (
	"fmt"
)

// AuditConfig defines settings for prediction audit storage and rotation.
type AuditConfig struct {
	// Backend selects the store type: "jsonl", "sqlite" or "none".
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

// Enabled reports whether predictions are audited.
func (c AuditConfig) Enabled() bool { return c.Backend != "none" }

// SetDefaults applies sane defaults.
func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" && c.Backend == "sqlite" {
		c.Path = "predictions.db"
	}
	if c.Path == "" {
		c.Path = "predictions.log"
	}
}

// Validate checks mandatory fields.
func (c AuditConfig) Validate() error {
	switch c.Backend {
	case "jsonl", "sqlite", "none":
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Enabled() && c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}
