package events

import (
	"time"

	"github.com/kilianp07/fleetmaint/core/model"
)

// PredictionEvent is published after every prediction.
type PredictionEvent struct {
	VehicleID  string
	Prediction model.Prediction
	RawScore   float64
	Time       time.Time
}

// TrainingEvent is published when a training run ends. Err is set when the
// run was cancelled before publishing new weights.
type TrainingEvent struct {
	Samples  int
	Epochs   int
	Duration time.Duration
	Err      error
	Time     time.Time
}

// SnapshotEvent is published when telemetry for a vehicle is stored.
// Source names the transport that delivered it, e.g. "mqtt" or "http".
type SnapshotEvent struct {
	VehicleID string
	Source    string
	Time      time.Time
}

// FleetSizeEvent is published whenever the whole fleet has been listed.
type FleetSizeEvent struct {
	Size int
	Time time.Time
}
