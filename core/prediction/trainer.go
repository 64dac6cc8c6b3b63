package prediction

import (
	"context"
	"sync"

	"github.com/kilianp07/fleetmaint/core/model"
)

// Training defaults.
const (
	DefaultEpochs       = 1000
	DefaultLearningRate = 0.01
)

// Penalties summed into the heuristic training target.
const (
	penaltyLowHealth   = 1.0
	penaltyLowBattery  = 1.5
	penaltyLowFuel     = 1.2
	penaltyHighMileage = 0.8
)

// TrainerConfig tunes the gradient descent loop.
type TrainerConfig struct {
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
}

// SetDefaults fills unset fields.
func (c *TrainerConfig) SetDefaults() {
	if c.Epochs <= 0 {
		c.Epochs = DefaultEpochs
	}
	if c.LearningRate <= 0 {
		c.LearningRate = DefaultLearningRate
	}
}

// Trainer fits a Model with per-sample gradient descent. Each snapshot
// updates the weights immediately, so the order of the training set matters.
type Trainer struct {
	model  *Model
	epochs int
	rate   float64

	mu sync.Mutex
}

// NewTrainer binds a trainer to m. Zero values in cfg take the defaults.
func NewTrainer(m *Model, cfg TrainerConfig) *Trainer {
	cfg.SetDefaults()
	return &Trainer{model: m, epochs: cfg.Epochs, rate: cfg.LearningRate}
}

// Train runs the configured number of epochs over snapshots in the given
// order. Updates accumulate on a private copy that is published once at the
// end, so concurrent predictions keep using the previous weights until then.
// Cancellation is checked between epochs; a cancelled run publishes nothing.
func (t *Trainer) Train(ctx context.Context, snapshots []model.Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	features := make([]FeatureVector, len(snapshots))
	targets := make([]float64, len(snapshots))
	for i, s := range snapshots {
		features[i] = Extract(s)
		targets[i] = TrainingTarget(s)
	}

	w := t.model.snapshot()
	for epoch := 0; epoch < t.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range features {
			f := features[i]
			delta := targets[i] - rawScore(f, w)
			for j := range w {
				w[j] += t.rate * delta * f[j]
			}
		}
	}
	t.model.publish(w)
	return nil
}

// TrainingTarget is the heuristic label for a snapshot: the sum of the
// penalties whose threshold the reported telemetry breaches.
func TrainingTarget(s model.Snapshot) float64 {
	var target float64
	if s.HealthScore != nil && *s.HealthScore < 50 {
		target += penaltyLowHealth
	}
	if s.HasBattery() && *s.BatteryLevel < 20 {
		target += penaltyLowBattery
	}
	if s.HasFuel() && *s.FuelLevel < 15 {
		target += penaltyLowFuel
	}
	if s.Mileage != nil && *s.Mileage > 100000 {
		target += penaltyHighMileage
	}
	return target
}
