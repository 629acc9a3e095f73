// Package metrics exposes climate-bridge instrumentation in the Prometheus
// text format.
//
// A Metrics value owns its own registry, so tests can create as many as they
// like. All methods are safe on a nil *Metrics, which turns instrumentation
// off without guarding every call site.
//
// Exported series (prefix climate_bridge_):
//   - thermostat gauges: current/target temperature, humidity, heating, mode
//   - mqtt_connected, mqtt_messages_received_total, mqtt_publishes_total,
//     mqtt_publish_duration_seconds
//   - http_requests_total, http_request_duration_seconds
package metrics
