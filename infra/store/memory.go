package store

import (
	"context"
	"sync"

	"github.com/kilianp07/fleetmaint/core/model"
)

// MemoryStore keeps snapshots in a map. It is the default backend.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.Snapshot
}

// NewMemoryStore returns an empty store, optionally seeded with snapshots.
func NewMemoryStore(seed ...model.Snapshot) *MemoryStore {
	s := &MemoryStore{data: make(map[string]model.Snapshot, len(seed))}
	for _, snap := range seed {
		if snap.VehicleID != "" {
			s.data[snap.VehicleID] = snap
		}
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.data[id]
	if !ok {
		return model.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Snapshot, 0, len(s.data))
	for _, snap := range s.data {
		if f.Match(snap) {
			res = append(res, snap)
		}
	}
	sortByID(res)
	return res, nil
}

func (s *MemoryStore) Upsert(_ context.Context, snap model.Snapshot) error {
	if snap.VehicleID == "" {
		return ErrMissingID
	}
	s.mu.Lock()
	s.data[snap.VehicleID] = snap
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
