package climate

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// settingsSaveTimeout bounds a settings write made from the event loop.
const settingsSaveTimeout = 5 * time.Second

// Publisher sends actuator commands.
//
// done must be called exactly once, and never synchronously from within
// PublishAsync: the controller calls PublishAsync from its event loop and
// done feeds back into that loop. mqtt.Session satisfies this interface.
//
// A failed publish is normally retried only by the next recomputation. One
// exception: when an acknowledgement confirms a command that the controller
// no longer wants, the current command is sent straight away from the
// completion, without waiting for another recomputation.
type Publisher interface {
	PublishAsync(topic string, payload []byte, qos byte, retained bool, done func(error))
}

// Logger is the logging interface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the controller's static settings.
type Config struct {
	// Name is a display name carried in snapshots.
	Name string

	// CommandTopic is the actuator's /set topic.
	CommandTopic string

	// CommandQoS is the QoS used for actuator commands.
	CommandQoS byte

	// InvertOnOff flips the payload sent to the actuator.
	InvertOnOff bool

	// Hysteresis is the deadband half-width; zero means DefaultHysteresis.
	Hysteresis float64
}

// controlState is owned by the event loop goroutine.
type controlState struct {
	currentTemperature float64
	currentHumidity    float64
	targetTemperature  float64
	mode               Mode
	heating            HeatingState
	command            Command
	confirmed          Command
	inflight           *inflightPublish
	sensor             SensorInfo
}

// inflightPublish is the most recent publish still waiting for its result.
type inflightPublish struct {
	seq     uint64
	command Command
	sentAt  time.Time
}

// request is a mutation submitted to the event loop.
type request struct {
	apply func() error
	done  chan error
}

// publishResult is the outcome of one PublishAsync call.
type publishResult struct {
	seq     uint64
	command Command
	err     error
}

// Controller is the thermostat state machine.
//
// Thread Safety:
//   - Getters and Snapshot are safe from any goroutine at any time.
//   - Mutators are safe from any goroutine; they block until the event loop
//     has applied them, so a getter called afterwards sees the change.
type Controller struct {
	cfg       Config
	publisher Publisher
	settings  SettingsRepository
	logger    Logger

	requests chan request
	results  chan publishResult
	stopped  chan struct{}
	running  atomic.Bool

	snapshot atomic.Pointer[Snapshot]

	onChange   func(Snapshot)
	onChangeMu sync.RWMutex

	// Loop-owned.
	state controlState
	seq   uint64
}

// NewController creates a controller in its initial state: mode off,
// heating off, setpoint 20 °C, nothing confirmed but OFF.
//
// Parameters:
//   - cfg: Topic, QoS, polarity and deadband settings
//   - publisher: Sends actuator commands (mqtt.Session in production)
//   - settings: Optional store for setpoint and mode (may be nil)
//   - logger: Logger instance (may be nil)
func NewController(cfg Config, publisher Publisher, settings SettingsRepository, logger Logger) *Controller {
	if cfg.Hysteresis <= 0 {
		cfg.Hysteresis = DefaultHysteresis
	}
	if logger == nil {
		logger = noopLogger{}
	}

	c := &Controller{
		cfg:       cfg,
		publisher: publisher,
		settings:  settings,
		logger:    logger,
		requests:  make(chan request),
		results:   make(chan publishResult),
		stopped:   make(chan struct{}),
		state: controlState{
			targetTemperature: DefaultTargetTemperature,
			mode:              ModeOff,
			heating:           HeatingOff,
			command:           CommandOff,
			confirmed:         CommandOff,
		},
	}
	c.snapshot.Store(c.buildSnapshot(time.Now().UTC()))
	return c
}

// RestoreSettings loads the persisted setpoint and mode. It must be called
// before Run. Restoring never recomputes or publishes; the next event does.
// Missing settings leave the defaults in place.
func (c *Controller) RestoreSettings(ctx context.Context) error {
	if c.running.Load() {
		return ErrControllerRunning
	}
	if c.settings == nil {
		return nil
	}

	s, err := c.settings.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			c.logger.Info("no stored thermostat settings, using defaults")
			return nil
		}
		return err
	}

	c.state.targetTemperature = ClampTarget(s.TargetTemperature)
	c.state.mode = s.Mode
	c.snapshot.Store(c.buildSnapshot(time.Now().UTC()))

	c.logger.Info("thermostat settings restored",
		"target_temperature", c.state.targetTemperature,
		"mode", c.state.mode,
	)
	return nil
}

// Run processes events until ctx is cancelled. It can be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrControllerRunning
	}
	defer close(c.stopped)

	c.logger.Info("climate controller started",
		"command_topic", c.cfg.CommandTopic,
		"hysteresis", c.cfg.Hysteresis,
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("climate controller stopped")
			return nil
		case req := <-c.requests:
			err := req.apply()
			c.publishSnapshot()
			req.done <- err
		case res := <-c.results:
			c.completePublish(res)
			c.publishSnapshot()
		}
	}
}

// submit runs apply on the event loop and waits for its result.
//
// Before Run starts, submit blocks until it does (or ctx ends).
func (c *Controller) submit(ctx context.Context, apply func() error) error {
	req := request{apply: apply, done: make(chan error, 1)}

	select {
	case c.requests <- req:
	case <-c.stopped:
		return ErrControllerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// The loop always answers an accepted request before doing anything else.
	return <-req.done
}

// OnTelemetry applies a sensor reading and recomputes.
//
// Values are stored as received; only the setpoint is clamped.
func (c *Controller) OnTelemetry(ctx context.Context, r Reading) error {
	if err := r.Validate(); err != nil {
		return err
	}

	return c.submit(ctx, func() error {
		s := &c.state
		if r.Temperature != nil {
			s.currentTemperature = *r.Temperature
		}
		if r.Humidity != nil {
			s.currentHumidity = *r.Humidity
		}
		seen := time.Now().UTC()
		s.sensor = SensorInfo{
			Battery:     copyPtr(r.Battery),
			LinkQuality: copyPtr(r.LinkQuality),
			Pressure:    copyPtr(r.Pressure),
			Voltage:     copyPtr(r.Voltage),
			LastSeen:    &seen,
		}

		c.logger.Debug("telemetry received",
			"temperature", s.currentTemperature,
			"humidity", s.currentHumidity,
		)

		c.recompute()
		return nil
	})
}

// HandleTelemetryMessage is the MQTT handler for the sensor topic.
//
// A malformed payload returns ErrMalformedTelemetry without touching state.
func (c *Controller) HandleTelemetryMessage(topic string, payload []byte) error {
	r, err := ParseReading(payload)
	if err != nil {
		return err
	}
	return c.OnTelemetry(context.Background(), r)
}

// SetTargetTemperature clamps v to a valid setpoint, stores it and
// recomputes. It returns the stored value. NaN leaves the setpoint unchanged.
func (c *Controller) SetTargetTemperature(ctx context.Context, v float64) (float64, error) {
	var stored float64
	err := c.submit(ctx, func() error {
		s := &c.state
		if !math.IsNaN(v) {
			clamped := ClampTarget(v)
			if clamped != v {
				c.logger.Debug("setpoint clamped", "requested", v, "stored", clamped)
			}
			if clamped != s.targetTemperature {
				s.targetTemperature = clamped
				c.logger.Info("target temperature changed", "target_temperature", clamped)
				c.saveSettings()
			}
		}
		stored = s.targetTemperature

		c.recompute()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// SetMode stores the mode and recomputes. Switching to ModeOff turns the
// heater off immediately.
func (c *Controller) SetMode(ctx context.Context, mode Mode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}

	return c.submit(ctx, func() error {
		if c.state.mode != mode {
			c.state.mode = mode
			c.logger.Info("mode changed", "mode", mode)
			c.saveSettings()
		}

		c.recompute()
		return nil
	})
}

// Resync publishes the current command if it differs from the last
// confirmed one and nothing is in flight. It does not recompute.
// Call it after the transport reconnects.
//
// This is a publish trigger outside recomputation: a command that failed
// while the broker was unreachable goes out on reconnect instead of waiting
// for the next telemetry message or setpoint change.
func (c *Controller) Resync(ctx context.Context) error {
	return c.submit(ctx, func() error {
		c.syncActuator()
		return nil
	})
}

// recompute derives heating state and command, then syncs the actuator.
func (c *Controller) recompute() {
	s := &c.state

	next := NextHeatingState(s.mode, s.heating, s.currentTemperature, s.targetTemperature, c.cfg.Hysteresis)
	if next != s.heating {
		c.logger.Info("heating state changed",
			"from", s.heating,
			"to", next,
			"current_temperature", s.currentTemperature,
			"target_temperature", s.targetTemperature,
		)
	}
	s.heating = next
	s.command = next.Command()

	c.syncActuator()
}

// syncActuator publishes the command when it differs from the last
// confirmed one, unless a publish carrying it is already in flight.
func (c *Controller) syncActuator() {
	s := &c.state
	if s.command == s.confirmed {
		return
	}
	if s.inflight != nil && s.inflight.command == s.command {
		return
	}

	c.seq++
	pub := &inflightPublish{seq: c.seq, command: s.command, sentAt: time.Now()}
	s.inflight = pub

	payload := buildActuatorPayload(pub.command, c.cfg.InvertOnOff)
	c.logger.Info("sending actuator command",
		"topic", c.cfg.CommandTopic,
		"command", pub.command,
		"payload", string(payload),
	)

	c.publisher.PublishAsync(c.cfg.CommandTopic, payload, c.cfg.CommandQoS, false, func(err error) {
		c.deliverResult(publishResult{seq: pub.seq, command: pub.command, err: err})
	})
}

// deliverResult hands a publish outcome to the loop. It runs on the
// publisher's goroutine and gives up once the loop has stopped.
func (c *Controller) deliverResult(res publishResult) {
	select {
	case c.results <- res:
	case <-c.stopped:
	}
}

// completePublish applies a publish outcome on the loop.
func (c *Controller) completePublish(res publishResult) {
	s := &c.state

	var latency time.Duration
	if s.inflight != nil && s.inflight.seq == res.seq {
		latency = time.Since(s.inflight.sentAt)
		s.inflight = nil
	}

	if res.err != nil {
		c.logger.Error("actuator publish failed",
			"topic", c.cfg.CommandTopic,
			"command", res.command,
			"error", res.err,
		)
		return
	}

	s.confirmed = res.command
	c.logger.Info("actuator command confirmed", "command", res.command, "latency", latency)

	// A late acknowledgement may confirm a command that is no longer wanted.
	if s.command != s.confirmed {
		c.logger.Info("actuator out of sync after acknowledgement, resending",
			"command", s.command,
			"confirmed", s.confirmed,
		)
		c.syncActuator()
	}
}

// saveSettings persists setpoint and mode. Failures are logged; the
// in-memory change stands.
func (c *Controller) saveSettings() {
	if c.settings == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), settingsSaveTimeout)
	defer cancel()

	err := c.settings.Save(ctx, Settings{
		TargetTemperature: c.state.targetTemperature,
		Mode:              c.state.mode,
		UpdatedAt:         time.Now().UTC(),
	})
	if err != nil {
		c.logger.Warn("saving thermostat settings failed", "error", err)
	}
}

// buildSnapshot copies the loop state into a new Snapshot.
func (c *Controller) buildSnapshot(updatedAt time.Time) *Snapshot {
	s := c.state
	return &Snapshot{
		Name:               c.cfg.Name,
		CurrentTemperature: s.currentTemperature,
		CurrentHumidity:    s.currentHumidity,
		TargetTemperature:  s.targetTemperature,
		Mode:               s.mode,
		HeatingActive:      s.heating,
		ActuatorCommand:    s.command,
		ConfirmedCommand:   s.confirmed,
		PublishPending:     s.inflight != nil,
		Sensor:             s.sensor,
		UpdatedAt:          updatedAt,
	}
}

// publishSnapshot swaps in a new snapshot if anything changed and notifies
// the change observer.
func (c *Controller) publishSnapshot() {
	prev := c.snapshot.Load()
	next := c.buildSnapshot(prev.UpdatedAt)
	if next.sameState(*prev) {
		return
	}
	next.UpdatedAt = time.Now().UTC()
	c.snapshot.Store(next)

	c.onChangeMu.RLock()
	callback := c.onChange
	c.onChangeMu.RUnlock()
	if callback != nil {
		callback(*next)
	}
}

// SetOnChange sets a callback invoked on the event loop after every event
// that changed the snapshot. It must not block or call mutators.
func (c *Controller) SetOnChange(callback func(Snapshot)) {
	c.onChangeMu.Lock()
	c.onChange = callback
	c.onChangeMu.Unlock()
}

// Snapshot returns the latest state.
func (c *Controller) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

// CurrentTemperature returns the last reported temperature (0 before any reading).
func (c *Controller) CurrentTemperature() float64 {
	return c.snapshot.Load().CurrentTemperature
}

// CurrentHumidity returns the last reported humidity (0 before any reading).
func (c *Controller) CurrentHumidity() float64 {
	return c.snapshot.Load().CurrentHumidity
}

// TargetTemperature returns the setpoint.
func (c *Controller) TargetTemperature() float64 {
	return c.snapshot.Load().TargetTemperature
}

// HeatingActive returns the derived heating state.
func (c *Controller) HeatingActive() HeatingState {
	return c.snapshot.Load().HeatingActive
}

// Mode returns the operating mode.
func (c *Controller) Mode() Mode {
	return c.snapshot.Load().Mode
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
