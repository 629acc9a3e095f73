package climate

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the user-selected operating mode.
type Mode string

// Supported modes.
const (
	ModeOff  Mode = "off"
	ModeHeat Mode = "heat"
)

// ParseMode parses a mode name, ignoring case and surrounding space.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	return m == ModeOff || m == ModeHeat
}

// HeatingState is the derived heating state.
type HeatingState string

// Heating states.
const (
	HeatingOff  HeatingState = "off"
	HeatingHeat HeatingState = "heat"
)

// Command returns the actuator command for the heating state.
func (h HeatingState) Command() Command {
	if h == HeatingHeat {
		return CommandOn
	}
	return CommandOff
}

// Command is the logical command for the heater outlet, before any
// polarity inversion.
type Command string

// Actuator commands. The values are the zigbee2mqtt "state" strings.
const (
	CommandOff Command = "OFF"
	CommandOn  Command = "ON"
)

// Invert returns the opposite command.
func (c Command) Invert() Command {
	if c == CommandOn {
		return CommandOff
	}
	return CommandOn
}

// SensorInfo carries the optional zigbee2mqtt metadata of the last reading.
type SensorInfo struct {
	Battery     *float64   `json:"battery,omitempty"`
	LinkQuality *float64   `json:"linkquality,omitempty"`
	Pressure    *float64   `json:"pressure,omitempty"`
	Voltage     *float64   `json:"voltage,omitempty"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
}

func (s SensorInfo) equal(o SensorInfo) bool {
	return equalPtr(s.Battery, o.Battery) &&
		equalPtr(s.LinkQuality, o.LinkQuality) &&
		equalPtr(s.Pressure, o.Pressure) &&
		equalPtr(s.Voltage, o.Voltage) &&
		equalTime(s.LastSeen, o.LastSeen)
}

// Snapshot is a point-in-time view of the controller state.
// It is a value type; the pointers it holds are never mutated.
type Snapshot struct {
	Name               string       `json:"name"`
	CurrentTemperature float64      `json:"current_temperature"`
	CurrentHumidity    float64      `json:"current_humidity"`
	TargetTemperature  float64      `json:"target_temperature"`
	Mode               Mode         `json:"mode"`
	HeatingActive      HeatingState `json:"heating_state"`
	ActuatorCommand    Command      `json:"actuator_command"`
	ConfirmedCommand   Command      `json:"confirmed_command"`
	PublishPending     bool         `json:"publish_pending"`
	Sensor             SensorInfo   `json:"sensor"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// sameState reports whether two snapshots differ only in UpdatedAt.
func (s Snapshot) sameState(o Snapshot) bool {
	return s.Name == o.Name &&
		s.CurrentTemperature == o.CurrentTemperature &&
		s.CurrentHumidity == o.CurrentHumidity &&
		s.TargetTemperature == o.TargetTemperature &&
		s.Mode == o.Mode &&
		s.HeatingActive == o.HeatingActive &&
		s.ActuatorCommand == o.ActuatorCommand &&
		s.ConfirmedCommand == o.ConfirmedCommand &&
		s.PublishPending == o.PublishPending &&
		s.Sensor.equal(o.Sensor)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
