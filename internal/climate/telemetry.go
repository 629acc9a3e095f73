package climate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Reading is one zigbee2mqtt sensor message.
//
// Temperature and humidity are optional individually: zigbee2mqtt may send a
// partial update. A reading with neither is malformed.
type Reading struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Battery     *float64 `json:"battery,omitempty"`
	LinkQuality *float64 `json:"linkquality,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
	Voltage     *float64 `json:"voltage,omitempty"`
}

// NewReading returns a reading carrying both temperature and humidity.
func NewReading(temperature, humidity float64) Reading {
	return Reading{Temperature: &temperature, Humidity: &humidity}
}

// Validate checks that the reading carries something to act on.
func (r Reading) Validate() error {
	if r.Temperature == nil && r.Humidity == nil {
		return fmt.Errorf("%w: neither temperature nor humidity present", ErrMalformedTelemetry)
	}
	return nil
}

// ParseReading decodes a sensor payload.
//
// Unknown fields are ignored. Anything that is not a JSON object, or whose
// known fields have the wrong type, is reported as ErrMalformedTelemetry.
func ParseReading(payload []byte) (Reading, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Reading{}, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedTelemetry)
	}

	var r Reading
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrMalformedTelemetry, err)
	}
	if err := r.Validate(); err != nil {
		return Reading{}, err
	}

	return r, nil
}

// actuatorPayload is the JSON body sent to the outlet's /set topic.
type actuatorPayload struct {
	State Command `json:"state"`
}

// buildActuatorPayload encodes cmd, flipping it first when invert is set.
func buildActuatorPayload(cmd Command, invert bool) []byte {
	if invert {
		cmd = cmd.Invert()
	}
	data, err := json.Marshal(actuatorPayload{State: cmd})
	if err != nil {
		// A single string field cannot fail to marshal.
		return []byte(`{"state":"` + string(cmd) + `"}`)
	}
	return data
}
