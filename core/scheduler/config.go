package scheduler

import (
	"errors"
	"time"
)

// Config defines the retraining cadence loaded from configuration.
type Config struct {
	// IntervalMinutes between two runs. Zero disables the scheduler.
	IntervalMinutes int `json:"interval_minutes" yaml:"interval_minutes"`
	// RunOnStart trains once before the first tick.
	RunOnStart bool `json:"run_on_start" yaml:"run_on_start"`
	// TimeoutSeconds bounds a single run. Zero means no bound.
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Enabled reports whether periodic retraining is configured.
func (c Config) Enabled() bool { return c.IntervalMinutes > 0 }

// Interval returns the period between runs.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Validate checks the numeric fields.
func (c Config) Validate() error {
	if c.IntervalMinutes < 0 {
		return errors.New("interval_minutes must not be negative")
	}
	if c.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	return nil
}
