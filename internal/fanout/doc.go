// Package fanout distributes light registry notifications to the
// configured sinks.
//
// The controller knows nothing about where notifications go; it calls
// a single Notifier. This package provides the implementations:
//
//   - Log: structured log lines for discovery and state changes.
//   - MQTT: retained state and discovery topics on the broker, plus an
//     inbound command subscription.
//   - Influx: time-series points for state changes and discovery.
//   - Multi: fans one notification out to any combination of the above.
//
// Sinks are optional and assembled at startup from config; Multi skips
// nil entries so wiring stays unconditional.
package fanout
