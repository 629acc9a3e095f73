// climate-bridge - zigbee2mqtt thermostat
//
// This is the main entry point for the climate bridge. It reads a
// zigbee2mqtt temperature sensor, runs a hysteresis thermostat against a
// user setpoint, and switches a zigbee2mqtt heater outlet. The thermostat is
// exposed over a small REST/WebSocket API.
//
// Usage:
//
//	climate-bridge                          run the bridge
//	climate-bridge migrate [up|down|status] manage the settings store schema
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/climate-bridge/internal/api"
	"github.com/nerrad567/climate-bridge/internal/climate"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/config"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/database"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/metrics"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/climate-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// resyncTimeout bounds the post-reconnect actuator resync.
const resyncTimeout = 5 * time.Second

func main() {
	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		err = runMigrate(ctx, os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting climate-bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Settings store (optional)
	db, err := openSettingsStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	var settings climate.SettingsRepository
	var dbHealth api.HealthChecker
	if db != nil {
		defer closeDatabase(db, log)
		settings = climate.NewSQLiteSettingsRepository(db.DB)
		dbHealth = db
	}

	instruments := metrics.New()

	// Transport session; nothing is sent until Connect.
	session := mqtt.NewSession(cfg.MQTT)
	session.SetLogger(log.With("component", "mqtt"))
	session.SetRecorder(instruments)
	topics := mqtt.NewTopicSet(cfg.MQTT.BaseTopic, cfg.Thermostat.Sensor, cfg.Thermostat.Actuator)

	ctrl := climate.NewController(climate.Config{
		Name:         cfg.Thermostat.Name,
		CommandTopic: topics.ActuatorSet(),
		CommandQoS:   byte(cfg.MQTT.CommandQoS), //nolint:gosec // validated to 1-2
		InvertOnOff:  cfg.Thermostat.InvertOnOff,
		Hysteresis:   cfg.Thermostat.Hysteresis,
	}, session, settings, log.With("component", "climate"))

	if restoreErr := ctrl.RestoreSettings(ctx); restoreErr != nil {
		return fmt.Errorf("restoring thermostat settings: %w", restoreErr)
	}

	// Controller event loop
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- ctrl.Run(loopCtx) }()
	defer func() {
		stopLoop()
		if loopErr := <-loopDone; loopErr != nil {
			log.Error("climate controller error", "error", loopErr)
		}
	}()

	// Route sensor telemetry to the controller and resync the actuator on
	// every (re)connect so a command that failed while offline is retried.
	if subErr := session.Subscribe(topics.SensorState(), byte(cfg.MQTT.QoS), ctrl.HandleTelemetryMessage); subErr != nil { //nolint:gosec // validated to 0-2
		return fmt.Errorf("registering sensor subscription: %w", subErr)
	}
	session.SetOnConnect(func() {
		log.Info("MQTT connected", "sensor_topic", topics.SensorState())
		go func() {
			resyncCtx, cancel := context.WithTimeout(loopCtx, resyncTimeout)
			defer cancel()
			if resyncErr := ctrl.Resync(resyncCtx); resyncErr != nil {
				log.Debug("actuator resync skipped", "error", resyncErr)
			}
		}()
	})
	session.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	session.Connect()
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := session.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connecting",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"base_topic", topics.Base(),
		"command_topic", topics.ActuatorSet(),
	)

	// REST/WebSocket API (optional)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Logger:     log.With("component", "api"),
			Thermostat: ctrl,
			MQTT:       session,
			Database:   dbHealth,
			Metrics:    instruments,
			Version:    version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// openSettingsStore opens the SQLite settings store when enabled and
// applies migrations. When disabled it returns a nil DB and the controller
// keeps its settings in memory only.
func openSettingsStore(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	if !cfg.Enabled {
		log.Info("settings store disabled, setpoint and mode reset on restart")
		return nil, nil //nolint:nilnil // no store when disabled
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", db.Path())

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		closeDatabase(db, log)
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")

	return db, nil
}

func closeDatabase(db *database.DB, log *logging.Logger) {
	log.Info("closing database")
	if err := db.Close(); err != nil {
		log.Error("error closing database", "error", err)
	}
}

// getConfigPath returns the configuration file path.
// It checks the CLIMATEBRIDGE_CONFIG environment variable first,
// then falls back to the default path.
func getConfigPath() string {
	if path := os.Getenv("CLIMATEBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
