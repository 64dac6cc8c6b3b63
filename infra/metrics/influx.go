package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetmaint/core/metrics"
	"github.com/kilianp07/fleetmaint/infra/logger"
)

// InfluxSink writes predictions and training runs to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPrediction writes one maintenance_prediction point.
func (s *InfluxSink) RecordPrediction(r coremetrics.PredictionResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("maintenance_prediction").
		AddTag("vehicle_id", r.VehicleID).
		AddTag("maintenance_type", string(r.MaintenanceType)).
		AddTag("needs_maintenance", strconv.FormatBool(r.NeedsMaintenance)).
		AddField("probability", round3(r.Probability)).
		AddField("confidence", round3(r.Confidence)).
		AddField("predicted_days", r.PredictedDays).
		AddField("raw_score", round3(r.RawScore)).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTraining writes one model_training point.
func (s *InfluxSink) RecordTraining(run coremetrics.TrainingRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("model_training").
		AddTag("status", trainingStatus(run)).
		AddField("samples", run.Samples).
		AddField("epochs", run.Epochs).
		AddField("duration_ms", round3(run.Duration.Seconds()*1000)).
		SetTime(run.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func trainingStatus(run coremetrics.TrainingRun) string {
	if run.Failed {
		return "aborted"
	}
	return "ok"
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
