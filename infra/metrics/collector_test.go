package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetmaint/core/events"
	coremetrics "github.com/kilianp07/fleetmaint/core/metrics"
	"github.com/kilianp07/fleetmaint/core/model"
	"github.com/kilianp07/fleetmaint/internal/eventbus"
)

type captureSink struct {
	mu          sync.Mutex
	predictions []coremetrics.PredictionResult
	trainings   []coremetrics.TrainingRun
	ingests     []coremetrics.IngestEvent
}

func (c *captureSink) RecordPrediction(r coremetrics.PredictionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.predictions = append(c.predictions, r)
	return nil
}

func (c *captureSink) RecordTraining(r coremetrics.TrainingRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trainings = append(c.trainings, r)
	return nil
}

func (c *captureSink) RecordIngest(ev coremetrics.IngestEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingests = append(c.ingests, ev)
	return nil
}

func (c *captureSink) counts() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.predictions), len(c.trainings), len(c.ingests)
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, sink, nil)

	now := time.Now()
	bus.Publish(events.PredictionEvent{
		VehicleID:  "v1",
		Prediction: model.Prediction{MaintenanceType: model.MaintenanceGeneral, NeedsMaintenance: true, PredictedDays: 33},
		RawScore:   1.2,
		Time:       now,
	})
	bus.Publish(events.TrainingEvent{Samples: 4, Epochs: 10, Err: errors.New("cancelled"), Time: now})
	bus.Publish(events.SnapshotEvent{VehicleID: "v1", Source: "mqtt", Time: now})
	bus.Publish("ignored")

	require.Eventually(t, func() bool {
		p, tr, in := sink.counts()
		return p == 1 && tr == 1 && in == 1
	}, time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	assert.Equal(t, "v1", sink.predictions[0].VehicleID)
	assert.Equal(t, 33, sink.predictions[0].PredictedDays)
	assert.Equal(t, 1.2, sink.predictions[0].RawScore)
	assert.True(t, sink.trainings[0].Failed)
	assert.Equal(t, "mqtt", sink.ingests[0].Source)
	sink.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestStartEventCollector_NilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, coremetrics.NopSink{}, nil)
	select {
	case <-done:
	default:
		t.Fatal("expected closed channel")
	}
}
