package climate

import "errors"

// Domain-specific errors for climate operations.
var (
	// ErrMalformedTelemetry is returned for sensor payloads that are not a JSON
	// object or carry neither temperature nor humidity.
	ErrMalformedTelemetry = errors.New("climate: malformed telemetry")

	// ErrInvalidMode is returned for modes other than "off" and "heat".
	ErrInvalidMode = errors.New("climate: invalid mode")

	// ErrControllerStopped is returned by mutators once Run has returned.
	ErrControllerStopped = errors.New("climate: controller stopped")

	// ErrControllerRunning is returned when Run is called twice, or settings
	// are restored after the loop has started.
	ErrControllerRunning = errors.New("climate: controller already running")

	// ErrSettingsNotFound is returned by a SettingsRepository with nothing stored.
	ErrSettingsNotFound = errors.New("climate: settings not found")
)
