package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for climate-bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Thermostat ThermostatConfig `yaml:"thermostat"`
	Database   DatabaseConfig   `yaml:"database"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// QoS is used for the sensor subscription and status messages.
	QoS int `yaml:"qos"`

	// CommandQoS is used for actuator commands: 1 or 2, default 2.
	CommandQoS int `yaml:"command_qos"`

	// BaseTopic is the zigbee2mqtt base topic shared by sensor and actuator.
	BaseTopic string `yaml:"base_topic"`

	// StatusTopic carries the bridge's own online/offline status (retained, LWT).
	StatusTopic string `yaml:"status_topic"`

	// PublishTimeout bounds the wait for a broker acknowledgement (seconds).
	PublishTimeout int `yaml:"publish_timeout"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// ThermostatConfig describes the single sensor-to-actuator relationship
// managed by this process.
type ThermostatConfig struct {
	Name string `yaml:"name"`

	// Sensor is the zigbee2mqtt friendly name of the temperature sensor.
	Sensor string `yaml:"sensor"`

	// Actuator is the zigbee2mqtt friendly name of the heater outlet.
	Actuator string `yaml:"actuator"`

	// InvertOnOff flips the ON/OFF payload sent to the actuator, for outlets
	// wired so that "OFF" energises the heater.
	InvertOnOff bool `yaml:"invert_on_off"`

	// Hysteresis is the half-width of the deadband around the setpoint (°C).
	Hysteresis float64 `yaml:"hysteresis"`
}

// DatabaseConfig contains SQLite settings for the optional settings store.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// maxHysteresis is the widest deadband accepted from configuration.
const maxHysteresis = 5.0

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CLIMATEBRIDGE_SECTION_KEY
// For example: CLIMATEBRIDGE_MQTT_HOST, CLIMATEBRIDGE_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "climate-bridge",
			},
			QoS:            1,
			CommandQoS:     2,
			BaseTopic:      "zigbee2mqtt",
			StatusTopic:    "climate-bridge/status",
			PublishTimeout: 5,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Thermostat: ThermostatConfig{
			Name:       "Thermostat",
			Hysteresis: 0.5,
		},
		Database: DatabaseConfig{
			Enabled:     false,
			Path:        "./data/climate-bridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CLIMATEBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("CLIMATEBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CLIMATEBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CLIMATEBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("CLIMATEBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("CLIMATEBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Logging
	if v := os.Getenv("CLIMATEBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	// Actuator commands are confirmed only by a broker acknowledgement.
	if c.MQTT.CommandQoS < 1 || c.MQTT.CommandQoS > 2 {
		errs = append(errs, "mqtt.command_qos must be 1 or 2")
	}
	if c.MQTT.BaseTopic == "" {
		errs = append(errs, "mqtt.base_topic is required")
	} else if strings.ContainsAny(c.MQTT.BaseTopic, "+#") {
		errs = append(errs, "mqtt.base_topic must not contain wildcards")
	}
	if c.MQTT.PublishTimeout < 1 {
		errs = append(errs, "mqtt.publish_timeout must be at least 1 second")
	}

	// Thermostat validation
	if c.Thermostat.Sensor == "" {
		errs = append(errs, "thermostat.sensor is required")
	}
	if c.Thermostat.Actuator == "" {
		errs = append(errs, "thermostat.actuator is required")
	}
	if c.Thermostat.Sensor != "" && c.Thermostat.Sensor == c.Thermostat.Actuator {
		errs = append(errs, "thermostat.sensor and thermostat.actuator must differ")
	}
	if strings.ContainsAny(c.Thermostat.Sensor+c.Thermostat.Actuator, "+#") {
		errs = append(errs, "thermostat device names must not contain wildcards")
	}
	if c.Thermostat.Hysteresis <= 0 || c.Thermostat.Hysteresis > maxHysteresis {
		errs = append(errs, fmt.Sprintf("thermostat.hysteresis must be in (0, %.0f]", maxHysteresis))
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}

// GetPublishTimeout returns the MQTT acknowledgement timeout as a Duration.
func (c *MQTTConfig) GetPublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeout) * time.Second
}
