package prediction

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/kilianp07/fleetmaint/core/events"
	"github.com/kilianp07/fleetmaint/core/logger"
	"github.com/kilianp07/fleetmaint/core/model"
	"github.com/kilianp07/fleetmaint/internal/eventbus"
)

// MaintenancePredictor is the entry point used by the host service.
type MaintenancePredictor interface {
	// Predict scores one snapshot. It never fails: absent telemetry is
	// defaulted and unknown vehicle types are treated as non-electric.
	Predict(s model.Snapshot) model.Prediction

	// Train refits the model on snapshots, in order. It only returns an
	// error when ctx is done before the run completes.
	Train(ctx context.Context, snapshots []model.Snapshot) error
}

// Config defines the engine settings.
type Config struct {
	// Seed makes the initial weights reproducible. Nil seeds from the clock.
	Seed    *int64        `json:"seed"`
	Trainer TrainerConfig `json:"trainer"`
}

// Engine composes feature extraction, scoring, diagnosis and component
// estimation. It is safe for concurrent use.
type Engine struct {
	model   *Model
	trainer *Trainer
	log     logger.Logger

	mu  sync.RWMutex
	bus eventbus.EventBus
}

// NewEngine wraps m. A nil logger discards output.
func NewEngine(m *Model, cfg TrainerConfig, log logger.Logger) *Engine {
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{model: m, trainer: NewTrainer(m, cfg), log: log}
}

// NewEngineFromConfig builds the model from cfg.Seed and wraps it.
func NewEngineFromConfig(cfg Config, log logger.Logger) *Engine {
	var rng *rand.Rand
	if cfg.Seed != nil {
		rng = rand.New(rand.NewSource(*cfg.Seed))
	}
	return NewEngine(NewModel(rng), cfg.Trainer, log)
}

// SetEventBus configures the bus receiving prediction and training events.
func (e *Engine) SetEventBus(bus eventbus.EventBus) {
	e.mu.Lock()
	e.bus = bus
	e.mu.Unlock()
}

// Model returns the underlying scoring model.
func (e *Engine) Model() *Model { return e.model }

// Predict scores the snapshot and assembles the full prediction.
func (e *Engine) Predict(s model.Snapshot) model.Prediction {
	raw := e.model.Score(Extract(s))
	mtype, days := Classify(s, raw)
	p := model.Prediction{
		NeedsMaintenance:   NeedsMaintenance(raw),
		MaintenanceType:    mtype,
		PredictedDays:      days,
		Probability:        Probability(raw),
		Confidence:         Confidence(raw),
		Components:         EstimateComponents(s),
		RecommendedActions: RecommendedActions(mtype),
	}
	e.log.Debugw("maintenance predicted", map[string]any{
		"vehicle_id":  s.VehicleID,
		"type":        string(p.MaintenanceType),
		"probability": p.Probability,
		"days":        p.PredictedDays,
	})
	e.mu.RLock()
	bus := e.bus
	e.mu.RUnlock()
	if bus != nil {
		bus.Publish(events.PredictionEvent{VehicleID: s.VehicleID, Prediction: p, RawScore: raw, Time: time.Now().UTC()})
	}
	return p
}

// Train refits the model weights from snapshots.
func (e *Engine) Train(ctx context.Context, snapshots []model.Snapshot) error {
	start := time.Now()
	e.log.Infof("training on %d snapshots for %d epochs", len(snapshots), e.trainer.epochs)
	err := e.trainer.Train(ctx, snapshots)
	took := time.Since(start)
	if err != nil {
		e.log.Warnf("training aborted after %s: %v", took, err)
	} else {
		e.log.Infow("training finished", map[string]any{"samples": len(snapshots), "duration_ms": took.Milliseconds()})
	}
	e.mu.RLock()
	bus := e.bus
	e.mu.RUnlock()
	if bus != nil {
		bus.Publish(events.TrainingEvent{
			Samples:  len(snapshots),
			Epochs:   e.trainer.epochs,
			Duration: took,
			Err:      err,
			Time:     time.Now().UTC(),
		})
	}
	return err
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Infow(string, map[string]any)  {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
