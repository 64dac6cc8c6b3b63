package prediction

import (
	"context"
	"sync"

	"github.com/kilianp07/fleetmaint/core/model"
)

// MockPredictor returns canned predictions and records training calls.
type MockPredictor struct {
	Predictions map[string]model.Prediction
	Fallback    model.Prediction
	TrainErr    error

	mu      sync.Mutex
	trained [][]model.Snapshot
}

// Predict returns the configured prediction for the vehicle or Fallback.
func (m *MockPredictor) Predict(s model.Snapshot) model.Prediction {
	if p, ok := m.Predictions[s.VehicleID]; ok {
		return p
	}
	return m.Fallback
}

// Train records the training set and returns TrainErr.
func (m *MockPredictor) Train(_ context.Context, snapshots []model.Snapshot) error {
	cp := make([]model.Snapshot, len(snapshots))
	copy(cp, snapshots)
	m.mu.Lock()
	m.trained = append(m.trained, cp)
	m.mu.Unlock()
	return m.TrainErr
}

// TrainCalls returns the training sets received so far.
func (m *MockPredictor) TrainCalls() [][]model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]model.Snapshot, len(m.trained))
	copy(out, m.trained)
	return out
}
