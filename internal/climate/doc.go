// Package climate implements the thermostat controller for climate-bridge.
//
// A Controller turns sensor telemetry plus a user setpoint and mode into an
// ON/OFF command for a heater outlet:
//
//	telemetry ─┐
//	setpoint  ─┼─► recompute (deadband) ─► command ─► publish if ≠ last confirmed
//	mode      ─┘
//
// All state lives on one event-loop goroutine started by Run. Telemetry,
// setpoint and mode changes, and publish acknowledgements are all events on
// that loop, so the control state needs no lock. Readers use Snapshot and the
// getters, which load an atomically swapped copy and never block.
//
// A command is published only when it differs from the last command the
// broker acknowledged, so a failed publish is retried by the next
// recomputation rather than by a timer.
//
// Setpoint and mode can optionally be persisted through a SettingsRepository;
// nothing else is stored.
package climate
