// Package metrics defines the sink interfaces used to observe the scoring
// engine. A MetricsSink records every prediction; optional recorder
// interfaces cover training runs, telemetry ingestion and fleet size. Sinks
// are built from configuration through the registry in factory.go and are
// combined with NewMultiSink when several are configured.
package metrics
