package metrics

import (
	"fmt"

	"github.com/kilianp07/fleetmaint/core/factory"
)

// Config lists the metrics sinks to build. Each entry names a registered
// sink type and its raw settings.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// Validate checks that every sink names a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d has no type", i)
		}
	}
	return nil
}
