package metrics

// MultiSink fans records out to multiple sinks. Optional recorder
// interfaces are forwarded only to the sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPrediction forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPrediction(res PredictionResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordPrediction(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordTraining forwards training runs.
func (m *MultiSink) RecordTraining(run TrainingRun) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TrainingRecorder); ok {
			if err := rec.RecordTraining(run); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordIngest forwards ingestion events.
func (m *MultiSink) RecordIngest(ev IngestEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(IngestRecorder); ok {
			if err := rec.RecordIngest(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleetSize forwards fleet size metrics when supported by the sink.
func (m *MultiSink) RecordFleetSize(size int) error {
	for _, s := range m.Sinks {
		if fr, ok := s.(FleetSizeRecorder); ok {
			if err := fr.RecordFleetSize(size); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
