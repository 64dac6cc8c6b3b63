package metrics

import (
	"fmt"

	"github.com/kilianp07/fleetmaint/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink names.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewMetricsSink builds every configured sink. No configuration yields a
// NopSink and several sinks are combined in a MultiSink. Sinks built before a
// failing entry are closed.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinkRegistry.Create(cfgs[0])
	}
	multi := NewMultiSink()
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			multi.Close()
			return nil, fmt.Errorf("metrics sink %d: %w", i, err)
		}
		multi.Sinks = append(multi.Sinks, s)
	}
	return multi, nil
}
