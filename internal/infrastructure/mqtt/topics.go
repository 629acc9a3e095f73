package mqtt

import "fmt"

// DefaultBaseTopic is zigbee2mqtt's default base topic.
const DefaultBaseTopic = "zigbee2mqtt"

// TopicSet builds the zigbee2mqtt topics for one sensor/actuator pair.
//
//	topics := mqtt.NewTopicSet("zigbee2mqtt", "living-room-sensor", "heater-outlet")
//	topics.SensorState() // "zigbee2mqtt/living-room-sensor"
//	topics.ActuatorSet() // "zigbee2mqtt/heater-outlet/set"
type TopicSet struct {
	base     string
	sensor   string
	actuator string
}

// NewTopicSet returns the topics for sensor and actuator under base.
// An empty base falls back to DefaultBaseTopic.
func NewTopicSet(base, sensor, actuator string) TopicSet {
	if base == "" {
		base = DefaultBaseTopic
	}
	return TopicSet{base: base, sensor: sensor, actuator: actuator}
}

// Base returns the base topic.
func (t TopicSet) Base() string {
	return t.base
}

// SensorState returns the topic the sensor publishes its readings on.
//
// Example: zigbee2mqtt/living-room-sensor
func (t TopicSet) SensorState() string {
	return fmt.Sprintf("%s/%s", t.base, t.sensor)
}

// ActuatorSet returns the command topic of the actuator.
//
// Example: zigbee2mqtt/heater-outlet/set
func (t TopicSet) ActuatorSet() string {
	return fmt.Sprintf("%s/%s/set", t.base, t.actuator)
}
