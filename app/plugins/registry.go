// Package plugins maps configuration names to prediction audit backends.
package plugins

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/kilianp07/fleetmaint/config"
	"github.com/kilianp07/fleetmaint/core/prediction/audit"
)

// AuditStoreFactory builds an audit store from raw config.
type AuditStoreFactory func(name string, conf map[string]any) (audit.Store, error)

var AuditStores = map[string]AuditStoreFactory{}

func RegisterAuditStore(name string, f AuditStoreFactory) { AuditStores[name] = f }

// NewAuditStore builds the backend selected by cfg. It returns a nil store
// when auditing is disabled.
func NewAuditStore(cfg config.AuditConfig) (audit.Store, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	f, ok := AuditStores[cfg.Backend]
	if !ok {
		names := make([]string, 0, len(AuditStores))
		for n := range AuditStores {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown audit backend %q (known: %v)", cfg.Backend, names)
	}
	conf := map[string]any{
		"path":         cfg.Path,
		"max_size_mb":  cfg.MaxSizeMB,
		"max_backups":  cfg.MaxBackups,
		"max_age_days": cfg.MaxAgeDays,
	}
	return f(cfg.Backend, conf)
}

func decodeAudit(conf map[string]any) (config.AuditConfig, error) {
	var ac config.AuditConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &ac,
	})
	if err != nil {
		return ac, err
	}
	if err := dec.Decode(conf); err != nil {
		return ac, err
	}
	return ac, nil
}
