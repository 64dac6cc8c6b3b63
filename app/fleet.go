package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/fleetmaint/core/events"
	"github.com/kilianp07/fleetmaint/core/model"
	coremqtt "github.com/kilianp07/fleetmaint/core/mqtt"
	"github.com/kilianp07/fleetmaint/core/prediction"
	"github.com/kilianp07/fleetmaint/infra/logger"
	"github.com/kilianp07/fleetmaint/infra/store"
	"github.com/kilianp07/fleetmaint/internal/eventbus"
)

// Ingest sources.
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
	SourceFile = "file"
)

// Fleet resolves vehicles through the snapshot store and scores them with
// the prediction engine.
type Fleet struct {
	store     store.Store
	engine    prediction.MaintenancePredictor
	publisher coremqtt.PredictionPublisher
	bus       eventbus.EventBus
	log       logger.Logger
}

// NewFleet wires a store and an engine. A nil logger discards output.
func NewFleet(st store.Store, engine prediction.MaintenancePredictor, log logger.Logger) *Fleet {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Fleet{store: st, engine: engine, log: log}
}

// SetPublisher configures where predictions triggered by telemetry are published.
func (f *Fleet) SetPublisher(p coremqtt.PredictionPublisher) { f.publisher = p }

// SetEventBus configures the bus receiving ingestion and fleet size events.
func (f *Fleet) SetEventBus(bus eventbus.EventBus) { f.bus = bus }

// Predict scores the stored snapshot of one vehicle. It returns
// store.ErrNotFound for unknown vehicles.
func (f *Fleet) Predict(ctx context.Context, vehicleID string) (model.Prediction, error) {
	snap, err := f.store.Get(ctx, vehicleID)
	if err != nil {
		return model.Prediction{}, err
	}
	return f.engine.Predict(snap), nil
}

// PredictAll scores every stored vehicle, keyed by vehicle id.
func (f *Fleet) PredictAll(ctx context.Context) (map[string]model.Prediction, error) {
	snaps, err := f.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Prediction, len(snaps))
	for _, s := range snaps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[s.VehicleID] = f.engine.Predict(s)
	}
	return out, nil
}

// Train refits the engine on every stored vehicle and returns the sample count.
func (f *Fleet) Train(ctx context.Context) (int, error) {
	snaps, err := f.list(ctx)
	if err != nil {
		return 0, err
	}
	if err := f.engine.Train(ctx, snaps); err != nil {
		return 0, fmt.Errorf("train on %d vehicles: %w", len(snaps), err)
	}
	return len(snaps), nil
}

// Upsert stores a snapshot received from source.
func (f *Fleet) Upsert(ctx context.Context, s model.Snapshot, source string) error {
	if err := f.store.Upsert(ctx, s); err != nil {
		return err
	}
	if f.bus != nil {
		f.bus.Publish(events.SnapshotEvent{VehicleID: s.VehicleID, Source: source, Time: time.Now().UTC()})
	}
	return nil
}

// Vehicles lists the stored snapshots matching f.
func (f *Fleet) Vehicles(ctx context.Context, filter store.Filter) ([]model.Snapshot, error) {
	return f.store.List(ctx, filter)
}

// HandleTelemetry merges an MQTT snapshot into the stored one and publishes
// the fresh prediction when a publisher is configured. Fields absent from the
// message keep their stored value.
func (f *Fleet) HandleTelemetry(ctx context.Context, update model.Snapshot) error {
	s := update
	stored, err := f.store.Get(ctx, update.VehicleID)
	switch {
	case err == nil:
		s = stored.Merge(update)
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("load vehicle %s: %w", update.VehicleID, err)
	}
	if err := f.Upsert(ctx, s, SourceMQTT); err != nil {
		return fmt.Errorf("store telemetry: %w", err)
	}
	if f.publisher == nil {
		return nil
	}
	if err := f.publisher.PublishPrediction(s.VehicleID, f.engine.Predict(s)); err != nil {
		return fmt.Errorf("publish prediction: %w", err)
	}
	return nil
}

func (f *Fleet) list(ctx context.Context) ([]model.Snapshot, error) {
	snaps, err := f.store.List(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	if f.bus != nil {
		f.bus.Publish(events.FleetSizeEvent{Size: len(snaps), Time: time.Now().UTC()})
	}
	return snaps, nil
}
