// Package api implements the HTTP REST API and WebSocket server for the
// climate bridge.
//
// This package provides:
//   - REST endpoints to read the thermostat snapshot and change setpoint or mode
//   - WebSocket hub broadcasting every snapshot change
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server is a consumer of climate.Controller. Writes go through the
// controller's mutators and are answered with the snapshot that reflects
// them; the controller's change callback feeds the WebSocket hub.
//
// # Graceful Degradation
//
// The server runs without a broker connection. Reads and setpoint changes
// still work; the actuator catches up once MQTT reconnects.
package api
