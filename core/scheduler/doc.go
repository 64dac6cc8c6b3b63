// Package scheduler retrains the maintenance model on a fixed interval so
// that the weights follow the telemetry stored for the fleet.
package scheduler
