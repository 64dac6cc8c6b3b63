// Package events defines the maintenance engine events emitted on the event bus.
//
// Available event types:
//   - PredictionEvent: a snapshot was scored
//   - TrainingEvent: a training run finished or was cancelled
//   - SnapshotEvent: fresh telemetry was stored for a vehicle
package events
