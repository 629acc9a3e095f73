package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a disconnected session.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is reported when a connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrConnectionLost is reported when an established connection drops.
	ErrConnectionLost = errors.New("mqtt: connection lost")

	// ErrPublishFailed is returned when a publish is not acknowledged by the broker.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is reported when the broker rejects a subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty topic is provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrTimeout is returned when an acknowledgement does not arrive in time.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
