// Package mqtt defines the messaging contracts used to receive vehicle
// telemetry and publish maintenance predictions.
package mqtt

import (
	"context"

	"github.com/kilianp07/fleetmaint/core/model"
)

// SnapshotHandler processes a decoded telemetry snapshot.
type SnapshotHandler func(ctx context.Context, s model.Snapshot) error

// TelemetrySubscriber delivers telemetry snapshots to a handler until the
// client disconnects.
type TelemetrySubscriber interface {
	SubscribeTelemetry(h SnapshotHandler) error
}

// PredictionPublisher publishes a fresh prediction for one vehicle.
type PredictionPublisher interface {
	PublishPrediction(vehicleID string, p model.Prediction) error
}
