package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/climate-bridge/internal/climate"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/config"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/metrics"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// mutationTimeout bounds how long a handler waits for the controller to
// apply a change.
const mutationTimeout = 5 * time.Second

// healthCheckTimeout bounds each dependency check made by the health endpoint.
const healthCheckTimeout = 2 * time.Second

// Thermostat is the controller surface used by the HTTP handlers.
// climate.Controller satisfies this interface.
type Thermostat interface {
	Snapshot() climate.Snapshot
	SetTargetTemperature(ctx context.Context, v float64) (float64, error)
	SetMode(ctx context.Context, mode climate.Mode) error
	SetOnChange(callback func(climate.Snapshot))
}

// HealthChecker is a dependency checked by the health endpoint.
// mqtt.Session and database.DB satisfy this interface.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Thermostat Thermostat
	MQTT       HealthChecker    // optional; health reports disconnected when nil
	Database   HealthChecker    // optional; nil when the settings store is disabled
	Metrics    *metrics.Metrics // optional; enables GET /metrics
	Version    string
}

// Server is the HTTP API server for the climate bridge.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	thermostat Thermostat
	mqtt       HealthChecker
	database   HealthChecker
	metrics    *metrics.Metrics
	version    string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	hub      *Hub
	cancel   context.CancelFunc // stops the hub on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, thermostat)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Thermostat == nil {
		return nil, fmt.Errorf("thermostat is required")
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		thermostat: deps.Thermostat,
		mqtt:       deps.MQTT,
		database:   deps.Database,
		metrics:    deps.Metrics,
		version:    deps.Version,
		hub:        NewHub(deps.WS, deps.Logger),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, relays thermostat changes to subscribed
// WebSocket clients, binds the listener, and serves in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for the hub (not used for listener lifetime)
//
// Returns:
//   - error: If the listener cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	var hubCtx context.Context
	hubCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(hubCtx)

	s.metrics.ObserveThermostat(thermostatGauges(s.thermostat.Snapshot()))
	s.thermostat.SetOnChange(func(snap climate.Snapshot) {
		s.metrics.ObserveThermostat(thermostatGauges(snap))
		s.hub.Broadcast(ChannelThermostatState, snap)
	})

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// thermostatGauges converts a snapshot to its exported gauges.
func thermostatGauges(snap climate.Snapshot) metrics.Thermostat {
	return metrics.Thermostat{
		CurrentTemperature: snap.CurrentTemperature,
		CurrentHumidity:    snap.CurrentHumidity,
		TargetTemperature:  snap.TargetTemperature,
		Heating:            snap.HeatingActive == climate.HeatingHeat,
		ModeHeat:           snap.Mode == climate.ModeHeat,
		PublishPending:     snap.PublishPending,
	}
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It detaches from the thermostat, closes WebSocket clients, and waits up
// to 10 seconds for in-flight requests to complete.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	s.thermostat.SetOnChange(nil)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
