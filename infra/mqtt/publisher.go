package mqtt

import (
	"fmt"
	"sync"

	"github.com/kilianp07/fleetmaint/core/model"
	coremqtt "github.com/kilianp07/fleetmaint/core/mqtt"
)

// Publisher mirrors the core prediction publisher interface.
type Publisher = coremqtt.PredictionPublisher

// MockPublisher records published predictions. It is used in tests.
type MockPublisher struct {
	Messages map[string]model.Prediction
	FailIDs  map[string]bool
	mu       sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Messages: make(map[string]model.Prediction),
		FailIDs:  make(map[string]bool),
	}
}

// PublishPrediction records the prediction or returns an error if configured to fail.
func (m *MockPublisher) PublishPrediction(vehicleID string, p model.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[vehicleID] {
		return fmt.Errorf("publish failed")
	}
	m.Messages[vehicleID] = p
	return nil
}

// Published returns the last prediction published for vehicleID.
func (m *MockPublisher) Published(vehicleID string) (model.Prediction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Messages[vehicleID]
	return p, ok
}
