package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetmaint/core/metrics"
	"github.com/kilianp07/fleetmaint/core/model"
)

func captureServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, strings.TrimSpace(string(data)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func TestInfluxSink_RecordPrediction(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	rec := coremetrics.PredictionResult{
		VehicleID:        "veh1",
		MaintenanceType:  model.MaintenanceFuelSystem,
		NeedsMaintenance: true,
		Probability:      0.81234,
		Confidence:       0.6,
		PredictedDays:    41,
		RawScore:         1.4567,
		Time:             now,
	}
	if err := sink.RecordPrediction(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("maintenance_prediction").
		AddTag("vehicle_id", "veh1").
		AddTag("maintenance_type", "Fuel System Check").
		AddTag("needs_maintenance", "true").
		AddField("probability", 0.812).
		AddField("confidence", 0.6).
		AddField("predicted_days", 41).
		AddField("raw_score", 1.457).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	got := bodies()
	if len(got) != 1 || got[0] != expected {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_RecordTraining(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordTraining(coremetrics.TrainingRun{Samples: 5, Epochs: 1000, Duration: 2 * time.Second, Failed: true, Time: now}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("model_training").
		AddTag("status", "aborted").
		AddField("samples", 5).
		AddField("epochs", 1000).
		AddField("duration_ms", 2000.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	got := bodies()
	if len(got) != 1 || got[0] != expected {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
