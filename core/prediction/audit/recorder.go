package audit

import (
	"context"

	"github.com/kilianp07/fleetmaint/core/events"
	"github.com/kilianp07/fleetmaint/core/logger"
	"github.com/kilianp07/fleetmaint/internal/eventbus"
)

// StartRecorder appends a Record for every PredictionEvent published on bus.
// Store writes happen on the recorder goroutine so predictions never wait on
// them. It stops when ctx is cancelled or the bus is closed; the returned
// channel is closed once the recorder has exited.
func StartRecorder(ctx context.Context, bus eventbus.EventBus, store Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
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
				pe, isPrediction := ev.(events.PredictionEvent)
				if !isPrediction {
					continue
				}
				rec := NewRecord(pe.VehicleID, pe.RawScore, pe.Prediction, pe.Time)
				if err := store.Append(ctx, rec); err != nil && log != nil {
					log.Warnf("audit append for %s: %v", pe.VehicleID, err)
				}
			}
		}
	}()
	return done
}
