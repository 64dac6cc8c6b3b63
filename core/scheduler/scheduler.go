package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/fleetmaint/core/logger"
)

// Trainer refits the model on the stored fleet and returns the sample count.
type Trainer interface {
	Train(ctx context.Context) (int, error)
}

// Run describes one retraining attempt.
type Run struct {
	Start    time.Time
	Duration time.Duration
	Vehicles int
	Err      error
}

// Scheduler triggers a Trainer on a ticker.
type Scheduler struct {
	cfg     Config
	trainer Trainer
	log     logger.Logger

	mu   sync.Mutex
	last *Run
	runs int
}

// New returns a scheduler for t.
func New(cfg Config, t Trainer, log logger.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, trainer: t, log: log}
}

// Start blocks until ctx is done, retraining every interval. Overlapping runs
// cannot happen: the next tick waits for the current run.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled() {
		return
	}
	if s.cfg.RunOnStart {
		s.RunOnce(ctx)
	}
	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce trains immediately and records the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) Run {
	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	run := Run{Start: time.Now().UTC()}
	run.Vehicles, run.Err = s.trainer.Train(ctx)
	run.Duration = time.Since(run.Start)
	if s.log != nil {
		if run.Err != nil {
			s.log.Warnf("scheduled retraining failed: %v", run.Err)
		} else {
			s.log.Infof("scheduled retraining on %d vehicles took %s", run.Vehicles, run.Duration)
		}
	}
	s.mu.Lock()
	s.last = &run
	s.runs++
	s.mu.Unlock()
	return run
}

// Last returns the most recent run, if any.
func (s *Scheduler) Last() (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Run{}, false
	}
	return *s.last, true
}

// Runs returns the number of completed runs.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
