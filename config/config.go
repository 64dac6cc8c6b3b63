// Package config loads the service configuration from a YAML or JSON file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fleetmaint/core/factory"
	"github.com/kilianp07/fleetmaint/core/metrics"
	"github.com/kilianp07/fleetmaint/core/prediction"
	"github.com/kilianp07/fleetmaint/core/scheduler"
	"github.com/kilianp07/fleetmaint/infra/mqtt"
)

// EnvPrefix marks environment variables that override file settings.
// K_HTTP__ADDR=:9000 sets http.addr.
const EnvPrefix = "K_"

type Config struct {
	Engine  prediction.Config    `json:"engine"`
	Store   factory.ModuleConfig `json:"store"`
	HTTP    HTTPConfig           `json:"http"`
	MQTT    mqtt.Config          `json:"mqtt"`
	Metrics metrics.Config       `json:"metrics"`
	Audit   AuditConfig          `json:"audit"`
	Sentry  SentryConfig         `json:"sentry"`
	Retrain scheduler.Config     `json:"retrain"`
	// SeedFile is an optional YAML or JSON snapshot file loaded into the
	// store at startup.
	SeedFile string `json:"seed_file"`
}

// Load reads the file at path. A .env file next to the working directory is
// loaded first so that its variables can take part in the overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration usable without a file: in-memory store,
// HTTP on DefaultHTTPAddr and no MQTT.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Engine.Trainer.SetDefaults()
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	c.HTTP.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
	c.Audit.SetDefaults()
	c.Sentry.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Engine.Trainer.Epochs < 0 {
		return fmt.Errorf("engine: epochs must be positive")
	}
	if c.Engine.Trainer.LearningRate < 0 {
		return fmt.Errorf("engine: learning_rate must be positive")
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if c.MQTT.Enabled() {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	if err := c.Audit.Validate(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if err := c.Retrain.Validate(); err != nil {
		return fmt.Errorf("retrain: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Sentry.Validate(); err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	return nil
}
