package metrics

import (
	"time"

	"github.com/kilianp07/fleetmaint/core/model"
)

// PredictionResult is one scored vehicle.
type PredictionResult struct {
	VehicleID        string
	MaintenanceType  model.MaintenanceType
	NeedsMaintenance bool
	Probability      float64
	Confidence       float64
	PredictedDays    int
	RawScore         float64
	Time             time.Time
}

// NewPredictionResult flattens a prediction for recording.
func NewPredictionResult(vehicleID string, raw float64, p model.Prediction, at time.Time) PredictionResult {
	return PredictionResult{
		VehicleID:        vehicleID,
		MaintenanceType:  p.MaintenanceType,
		NeedsMaintenance: p.NeedsMaintenance,
		Probability:      p.Probability,
		Confidence:       p.Confidence,
		PredictedDays:    p.PredictedDays,
		RawScore:         raw,
		Time:             at,
	}
}

// MetricsSink records predictions for observability purposes.
type MetricsSink interface {
	RecordPrediction(res PredictionResult) error
}

// TrainingRun describes one completed or aborted training run.
type TrainingRun struct {
	Samples  int
	Epochs   int
	Duration time.Duration
	Failed   bool
	Time     time.Time
}

// TrainingRecorder records training runs.
type TrainingRecorder interface {
	RecordTraining(run TrainingRun) error
}

// IngestEvent records a telemetry snapshot entering the service.
type IngestEvent struct {
	VehicleID string
	// Source is the channel the snapshot came through, e.g. "mqtt" or "http".
	Source string
	Time   time.Time
}

// IngestRecorder records telemetry ingestion.
type IngestRecorder interface {
	RecordIngest(ev IngestEvent) error
}

// FleetSizeRecorder records the number of known vehicles.
type FleetSizeRecorder interface {
	RecordFleetSize(size int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPrediction(PredictionResult) error { return nil }
func (NopSink) RecordTraining(TrainingRun) error        { return nil }
func (NopSink) RecordIngest(IngestEvent) error          { return nil }
func (NopSink) RecordFleetSize(int) error               { return nil }
