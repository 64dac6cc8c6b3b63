// Package infra holds the adapters around the scoring engine: snapshot
// stores, the MQTT client, metrics sinks, Sentry monitoring and the zerolog
// logger. They implement interfaces declared under core.
package infra
