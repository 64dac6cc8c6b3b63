// Package store keeps the latest telemetry snapshot of every vehicle. The
// scoring engine is stateless; the host service resolves vehicle identifiers
// through a Store before calling it. Backends are registered by name and built
// from configuration with New.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/kilianp07/fleetmaint/core/factory"
	"github.com/kilianp07/fleetmaint/core/model"
)

// ErrNotFound is returned by Get when no snapshot exists for the vehicle.
var ErrNotFound = errors.New("vehicle not found")

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type         *model.VehicleType
	Manufacturer string
	Status       string
}

// Match reports whether s passes the filter.
func (f Filter) Match(s model.Snapshot) bool {
	if f.Type != nil && s.Type != *f.Type {
		return false
	}
	if f.Manufacturer != "" && !strings.EqualFold(s.Manufacturer, f.Manufacturer) {
		return false
	}
	if f.Status != "" && !strings.EqualFold(s.Status, f.Status) {
		return false
	}
	return true
}

// Store persists the latest snapshot per vehicle.
type Store interface {
	// Get returns the snapshot of one vehicle or ErrNotFound.
	Get(ctx context.Context, vehicleID string) (model.Snapshot, error)
	// List returns matching snapshots ordered by vehicle identifier.
	List(ctx context.Context, f Filter) ([]model.Snapshot, error)
	// Upsert replaces the stored snapshot of s.VehicleID.
	Upsert(ctx context.Context, s model.Snapshot) error
	Close() error
}

// ErrMissingID is returned when upserting a snapshot without a vehicle identifier.
var ErrMissingID = errors.New("snapshot has no vehicle id")

var registry = factory.NewRegistry[Store]()

// Register adds a backend factory identified by name.
func Register(name string, f factory.Factory[Store]) error {
	return registry.Register(name, f)
}

// New builds the backend described by cfg. An empty type selects the memory store.
func New(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return registry.Create(cfg)
}

// Backends lists the registered backend names.
func Backends() []string { return registry.Types() }

func sortByID(res []model.Snapshot) {
	sort.Slice(res, func(i, j int) bool { return res[i].VehicleID < res[j].VehicleID })
}
