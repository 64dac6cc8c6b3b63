package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetmaint/core/model"
)

// LoadSnapshots reads a list of snapshots from a YAML or JSON file. The
// format follows the file extension; unknown extensions are parsed as YAML,
// which also accepts JSON.
func LoadSnapshots(path string) ([]model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshots(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

// DecodeSnapshots parses a snapshot list. A single object is accepted as a
// one-element list.
func DecodeSnapshots(data []byte, isJSON bool) ([]model.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var list []model.Snapshot
	if isJSON {
		if trimmed[0] == '{' {
			var one model.Snapshot
			if err := json.Unmarshal(trimmed, &one); err != nil {
				return nil, fmt.Errorf("decode snapshot: %w", err)
			}
			return []model.Snapshot{one}, nil
		}
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode snapshots: %w", err)
		}
		return list, nil
	}
	if err := yaml.Unmarshal(trimmed, &list); err != nil {
		var one model.Snapshot
		if yerr := yaml.Unmarshal(trimmed, &one); yerr != nil {
			return nil, fmt.Errorf("decode snapshots: %w", err)
		}
		return []model.Snapshot{one}, nil
	}
	return list, nil
}

// Seed upserts every snapshot into s.
func Seed(ctx context.Context, s Store, snaps []model.Snapshot) error {
	for _, snap := range snaps {
		if err := s.Upsert(ctx, snap); err != nil {
			return fmt.Errorf("seed %s: %w", snap.VehicleID, err)
		}
	}
	return nil
}
