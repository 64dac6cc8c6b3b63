package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/fleetmaint/core/metrics"
)

// PromSink records scoring engine activity in Prometheus metrics.
type PromSink struct {
	predictions *prometheus.CounterVec
	probability prometheus.Histogram
	days        prometheus.Histogram
	training    *prometheus.HistogramVec
	ingest      *prometheus.CounterVec
	fleet       prometheus.Gauge
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// that are already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	predictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_predictions_total",
		Help: "Total number of maintenance predictions",
	}, []string{"maintenance_type", "needs_maintenance"})
	probability := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "maintenance_probability",
		Help:    "Distribution of predicted maintenance probabilities",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
	})
	days := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "maintenance_predicted_days",
		Help:    "Distribution of predicted days until maintenance",
		Buckets: []float64{1, 7, 14, 30, 45, 60, 75, 90},
	})
	training := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "model_training_duration_seconds",
		Help:    "Duration of model training runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	ingest := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_snapshots_total",
		Help: "Telemetry snapshots received per source",
	}, []string{"source"})
	fleet := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_vehicles_total",
		Help: "Number of vehicles with stored telemetry",
	})

	var err error
	if predictions, err = register(reg, predictions); err != nil {
		return nil, err
	}
	if probability, err = register(reg, probability); err != nil {
		return nil, err
	}
	if days, err = register(reg, days); err != nil {
		return nil, err
	}
	if training, err = register(reg, training); err != nil {
		return nil, err
	}
	if ingest, err = register(reg, ingest); err != nil {
		return nil, err
	}
	if fleet, err = register(reg, fleet); err != nil {
		return nil, err
	}
	return &PromSink{
		predictions: predictions,
		probability: probability,
		days:        days,
		training:    training,
		ingest:      ingest,
		fleet:       fleet,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPrediction counts the prediction and observes its probability and due date.
func (s *PromSink) RecordPrediction(r coremetrics.PredictionResult) error {
	s.predictions.WithLabelValues(string(r.MaintenanceType), strconv.FormatBool(r.NeedsMaintenance)).Inc()
	s.probability.Observe(r.Probability)
	s.days.Observe(float64(r.PredictedDays))
	return nil
}

// RecordTraining observes the run duration labelled by outcome.
func (s *PromSink) RecordTraining(run coremetrics.TrainingRun) error {
	status := "ok"
	if run.Failed {
		status = "aborted"
	}
	s.training.WithLabelValues(status).Observe(run.Duration.Seconds())
	return nil
}

// RecordIngest counts a received snapshot.
func (s *PromSink) RecordIngest(ev coremetrics.IngestEvent) error {
	s.ingest.WithLabelValues(ev.Source).Inc()
	return nil
}

// RecordFleetSize sets the gauge to the number of known vehicles.
func (s *PromSink) RecordFleetSize(size int) error {
	s.fleet.Set(float64(size))
	return nil
}
