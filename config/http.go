package config

import "fmt"

// DefaultHTTPAddr is the listen address of the API.
const DefaultHTTPAddr = ":8080"

// HTTPConfig configures the maintenance API.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// Token protects training, vehicle upserts and the audit log when set.
	Token string `json:"token"`
	// Metrics serves the Prometheus registry on /metrics.
	Metrics bool `json:"metrics"`
	// ShutdownSeconds bounds graceful shutdown.
	ShutdownSeconds int `json:"shutdown_seconds"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultHTTPAddr
	}
	if c.ShutdownSeconds <= 0 {
		c.ShutdownSeconds = 5
	}
}

// Validate checks mandatory fields.
func (c HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}
