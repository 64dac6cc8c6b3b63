package metrics

import (
	"context"

	"github.com/kilianp07/fleetmaint/core/events"
	coremetrics "github.com/kilianp07/fleetmaint/core/metrics"
	"github.com/kilianp07/fleetmaint/infra/logger"
	"github.com/kilianp07/fleetmaint/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("metrics record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.PredictionEvent:
		return sink.RecordPrediction(coremetrics.NewPredictionResult(e.VehicleID, e.RawScore, e.Prediction, e.Time))
	case events.TrainingEvent:
		if r, ok := sink.(coremetrics.TrainingRecorder); ok {
			return r.RecordTraining(coremetrics.TrainingRun{
				Samples:  e.Samples,
				Epochs:   e.Epochs,
				Duration: e.Duration,
				Failed:   e.Err != nil,
				Time:     e.Time,
			})
		}
	case events.FleetSizeEvent:
		if r, ok := sink.(coremetrics.FleetSizeRecorder); ok {
			return r.RecordFleetSize(e.Size)
		}
	case events.SnapshotEvent:
		if r, ok := sink.(coremetrics.IngestRecorder); ok {
			return r.RecordIngest(coremetrics.IngestEvent{VehicleID: e.VehicleID, Source: e.Source, Time: e.Time})
		}
	}
	return nil
}
