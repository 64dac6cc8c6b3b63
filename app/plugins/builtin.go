package plugins

import (
	"github.com/kilianp07/fleetmaint/core/prediction/audit"
)

func init() {
	RegisterAuditStore("jsonl", func(name string, conf map[string]any) (audit.Store, error) {
		ac, err := decodeAudit(conf)
		if err != nil {
			return nil, err
		}
		return audit.NewJSONLStore(ac.Path, ac.MaxSizeMB, ac.MaxBackups, ac.MaxAgeDays)
	})
	RegisterAuditStore("sqlite", func(name string, conf map[string]any) (audit.Store, error) {
		ac, err := decodeAudit(conf)
		if err != nil {
			return nil, err
		}
		return audit.NewSQLiteStore(ac.Path)
	})
}
