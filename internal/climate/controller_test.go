package climate

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type publishedMessage struct {
	Topic    string
	State    string
	QoS      byte
	Retained bool
}

// mockPublisher records publishes and holds their completion callbacks
// until the test acknowledges them (or acknowledges automatically).
type mockPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	pending  []func(error)
	autoAck  bool
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{}
}

func (m *mockPublisher) PublishAsync(topic string, payload []byte, qos byte, retained bool, done func(error)) {
	var body struct {
		State string `json:"state"`
	}
	_ = json.Unmarshal(payload, &body)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, publishedMessage{Topic: topic, State: body.State, QoS: qos, Retained: retained})
	m.pending = append(m.pending, done)

	if m.autoAck {
		go done(nil)
	}
}

func (m *mockPublisher) getMessages() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := make([]publishedMessage, len(m.messages))
	copy(cpy, m.messages)
	return cpy
}

// ack completes the i-th publish with err.
func (m *mockPublisher) ack(i int, err error) {
	m.mu.Lock()
	done := m.pending[i]
	m.mu.Unlock()
	done(err)
}

// memSettingsRepo is an in-memory SettingsRepository.
type memSettingsRepo struct {
	mu     sync.Mutex
	stored *Settings
	saves  []Settings
}

func (r *memSettingsRepo) Load(context.Context) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stored == nil {
		return Settings{}, ErrSettingsNotFound
	}
	return *r.stored, nil
}

func (r *memSettingsRepo) Save(_ context.Context, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = &s
	r.saves = append(r.saves, s)
	return nil
}

func (r *memSettingsRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

const testCommandTopic = "zigbee2mqtt/heater-outlet/set"

func testConfig() Config {
	return Config{
		Name:         "Test Thermostat",
		CommandTopic: testCommandTopic,
		CommandQoS:   2,
	}
}

// startController runs a controller until the test ends.
func startController(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
}

func newRunningController(t *testing.T, cfg Config) (*Controller, *mockPublisher) {
	t.Helper()
	pub := newMockPublisher()
	c := NewController(cfg, pub, nil, nil)
	startController(t, c)
	return c, pub
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func sendTemperature(t *testing.T, c *Controller, temp float64) {
	t.Helper()
	if err := c.OnTelemetry(context.Background(), Reading{Temperature: &temp}); err != nil {
		t.Fatalf("OnTelemetry(%v) error = %v", temp, err)
	}
}

func setMode(t *testing.T, c *Controller, mode Mode) {
	t.Helper()
	if err := c.SetMode(context.Background(), mode); err != nil {
		t.Fatalf("SetMode(%s) error = %v", mode, err)
	}
}

func states(msgs []publishedMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.State
	}
	return out
}

func equalStates(got []publishedMessage, want ...string) bool {
	s := states(got)
	if len(s) != len(want) {
		return false
	}
	for i := range s {
		if s[i] != want[i] {
			return false
		}
	}
	return true
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestController_InitialState(t *testing.T) {
	c := NewController(testConfig(), newMockPublisher(), nil, nil)

	if got := c.CurrentTemperature(); got != 0 {
		t.Errorf("CurrentTemperature() = %v, want 0", got)
	}
	if got := c.CurrentHumidity(); got != 0 {
		t.Errorf("CurrentHumidity() = %v, want 0", got)
	}
	if got := c.TargetTemperature(); got != DefaultTargetTemperature {
		t.Errorf("TargetTemperature() = %v, want %v", got, DefaultTargetTemperature)
	}
	if got := c.Mode(); got != ModeOff {
		t.Errorf("Mode() = %v, want off", got)
	}
	if got := c.HeatingActive(); got != HeatingOff {
		t.Errorf("HeatingActive() = %v, want off", got)
	}

	snap := c.Snapshot()
	if snap.ActuatorCommand != CommandOff || snap.ConfirmedCommand != CommandOff || snap.PublishPending {
		t.Errorf("Snapshot() = %+v, want OFF/OFF and nothing pending", snap)
	}
	if snap.Name != "Test Thermostat" {
		t.Errorf("Snapshot().Name = %q", snap.Name)
	}
}

func TestController_OffModeIsIdempotent(t *testing.T) {
	c, pub := newRunningController(t, testConfig())

	for _, temp := range []float64{5, 15, 19.9, 25, 35} {
		sendTemperature(t, c, temp)
		if c.HeatingActive() != HeatingOff {
			t.Fatalf("heating active at %v°C in off mode", temp)
		}
	}
	setMode(t, c, ModeOff)
	setMode(t, c, ModeOff)

	if msgs := pub.getMessages(); len(msgs) != 0 {
		t.Errorf("published %v in off mode, want nothing", states(msgs))
	}
	if got := c.CurrentTemperature(); got != 35 {
		t.Errorf("CurrentTemperature() = %v, want 35 (stored as received)", got)
	}
}

func TestController_HysteresisSequence(t *testing.T) {
	c, pub := newRunningController(t, testConfig())
	pub.autoAck = true

	sendTemperature(t, c, 19.0)
	setMode(t, c, ModeHeat)

	steps := []struct {
		temp float64
		want HeatingState
	}{
		{19.0, HeatingHeat},
		{20.3, HeatingHeat},
		{20.6, HeatingOff},
		{19.6, HeatingOff},
	}

	for _, step := range steps {
		sendTemperature(t, c, step.temp)
		if got := c.HeatingActive(); got != step.want {
			t.Fatalf("at %.1f°C HeatingActive() = %v, want %v", step.temp, got, step.want)
		}
		waitFor(t, "publish acknowledged", func() bool { return !c.Snapshot().PublishPending })
	}

	msgs := pub.getMessages()
	if !equalStates(msgs, "ON", "OFF") {
		t.Fatalf("published %v, want [ON OFF]", states(msgs))
	}
	for _, m := range msgs {
		if m.Topic != testCommandTopic || m.QoS != 2 || m.Retained {
			t.Errorf("message = %+v, want QoS 2 non-retained on %s", m, testCommandTopic)
		}
	}
	if got := c.Snapshot().ConfirmedCommand; got != CommandOff {
		t.Errorf("ConfirmedCommand = %v, want OFF", got)
	}
}

func TestController_SuppressesRepeatedCommands(t *testing.T) {
	c, pub := newRunningController(t, testConfig())
	sendTemperature(t, c, 18)
	setMode(t, c, ModeHeat)

	// While the ON publish is in flight, more cold readings add nothing.
	sendTemperature(t, c, 18.5)
	sendTemperature(t, c, 17)
	if msgs := pub.getMessages(); len(msgs) != 1 {
		t.Fatalf("published %v while in flight, want one ON", states(msgs))
	}
	if !c.Snapshot().PublishPending {
		t.Error("PublishPending = false, want true before acknowledgement")
	}

	pub.ack(0, nil)
	waitFor(t, "ON confirmed", func() bool { return c.Snapshot().ConfirmedCommand == CommandOn })

	// Confirmed and computed agree: nothing more to send.
	sendTemperature(t, c, 18)
	sendTemperature(t, c, 19.9)
	if msgs := pub.getMessages(); len(msgs) != 1 {
		t.Errorf("published %v after confirmation, want one ON", states(msgs))
	}
}

func TestController_PublishFailureRetriedOnNextRecompute(t *testing.T) {
	c, pub := newRunningController(t, testConfig())
	sendTemperature(t, c, 18)
	setMode(t, c, ModeHeat)

	pub.ack(0, errors.New("broker unavailable"))
	waitFor(t, "failure applied", func() bool { return !c.Snapshot().PublishPending })

	if got := c.Snapshot().ConfirmedCommand; got != CommandOff {
		t.Fatalf("ConfirmedCommand = %v after failure, want OFF", got)
	}
	if got := len(pub.getMessages()); got != 1 {
		t.Fatalf("published %d messages before next recompute, want 1 (no timer retry)", got)
	}

	sendTemperature(t, c, 18)

	msgs := pub.getMessages()
	if !equalStates(msgs, "ON", "ON") {
		t.Fatalf("published %v, want [ON ON]", states(msgs))
	}

	pub.ack(1, nil)
	waitFor(t, "retry confirmed", func() bool { return c.Snapshot().ConfirmedCommand == CommandOn })
}

func TestController_LateAcknowledgementResyncs(t *testing.T) {
	c, pub := newRunningController(t, testConfig())
	sendTemperature(t, c, 18)
	setMode(t, c, ModeHeat)

	// The room warms up before the ON is acknowledged.
	sendTemperature(t, c, 22)
	if got := c.Snapshot().ActuatorCommand; got != CommandOff {
		t.Fatalf("ActuatorCommand = %v, want OFF", got)
	}
	if got := len(pub.getMessages()); got != 1 {
		t.Fatalf("published %d messages, want 1 (OFF equals confirmed)", got)
	}

	pub.ack(0, nil)
	waitFor(t, "resync publish", func() bool { return len(pub.getMessages()) == 2 })

	if msgs := pub.getMessages(); !equalStates(msgs, "ON", "OFF") {
		t.Fatalf("published %v, want [ON OFF]", states(msgs))
	}
	if got := c.Snapshot().ConfirmedCommand; got != CommandOn {
		t.Errorf("ConfirmedCommand = %v, want ON (stale ack accepted)", got)
	}

	pub.ack(1, nil)
	waitFor(t, "OFF confirmed", func() bool { return c.Snapshot().ConfirmedCommand == CommandOff })
}

func TestController_InvertOnOffAppliesOnlyToPayload(t *testing.T) {
	cfg := testConfig()
	cfg.InvertOnOff = true
	c, pub := newRunningController(t, cfg)

	sendTemperature(t, c, 18)
	setMode(t, c, ModeHeat)

	msgs := pub.getMessages()
	if !equalStates(msgs, "OFF") {
		t.Fatalf("published %v, want inverted [OFF]", states(msgs))
	}

	snap := c.Snapshot()
	if snap.ActuatorCommand != CommandOn || snap.HeatingActive != HeatingHeat {
		t.Errorf("snapshot = %+v, want logical ON/heat", snap)
	}

	pub.ack(0, nil)
	waitFor(t, "ON confirmed", func() bool { return c.Snapshot().ConfirmedCommand == CommandOn })
}

func TestController_SetModeOffTurnsHeaterOff(t *testing.T) {
	c, pub := newRunningController(t, testConfig())
	pub.autoAck = true

	sendTemperature(t, c, 18)
	setMode(t, c, ModeHeat)
	waitFor(t, "ON confirmed", func() bool { return c.Snapshot().ConfirmedCommand == CommandOn })

	setMode(t, c, ModeOff)
	if got := c.HeatingActive(); got != HeatingOff {
		t.Errorf("HeatingActive() = %v right after SetMode(off), want off", got)
	}
	if got := c.Mode(); got != ModeOff {
		t.Errorf("Mode() = %v, want off", got)
	}

	waitFor(t, "OFF confirmed", func() bool { return c.Snapshot().ConfirmedCommand == CommandOff })
	if msgs := pub.getMessages(); !equalStates(msgs, "ON", "OFF") {
		t.Errorf("published %v, want [ON OFF]", states(msgs))
	}
}

func TestController_SetModeInvalid(t *testing.T) {
	c, _ := newRunningController(t, testConfig())

	if err := c.SetMode(context.Background(), Mode("cool")); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("SetMode(cool) error = %v, want ErrInvalidMode", err)
	}
	if got := c.Mode(); got != ModeOff {
		t.Errorf("Mode() = %v, want unchanged off", got)
	}
}

func TestController_SetTargetTemperatureClamps(t *testing.T) {
	c, _ := newRunningController(t, testConfig())

	tests := []struct {
		in   float64
		want float64
	}{
		{35, 30},
		{9, 10},
		{21.3, 21.5},
		{21.2, 21.0},
		{21.25, 21.5},
	}

	for _, tt := range tests {
		got, err := c.SetTargetTemperature(context.Background(), tt.in)
		if err != nil {
			t.Fatalf("SetTargetTemperature(%v) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("SetTargetTemperature(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if c.TargetTemperature() != tt.want {
			t.Errorf("TargetTemperature() = %v after set, want %v", c.TargetTemperature(), tt.want)
		}
	}
}

func TestController_SetTargetTemperatureNaNIgnored(t *testing.T) {
	c, _ := newRunningController(t, testConfig())

	if _, err := c.SetTargetTemperature(context.Background(), 22); err != nil {
		t.Fatalf("SetTargetTemperature() error = %v", err)
	}
	got, err := c.SetTargetTemperature(context.Background(), math.NaN())
	if err != nil {
		t.Fatalf("SetTargetTemperature(NaN) error = %v", err)
	}
	if got != 22 || c.TargetTemperature() != 22 {
		t.Errorf("setpoint = %v after NaN, want unchanged 22", got)
	}
}

func TestController_SetpointChangeRecomputes(t *testing.T) {
	c, pub := newRunningController(t, testConfig())

	// 20°C against a 20°C setpoint sits inside the band: stays off.
	sendTemperature(t, c, 20)
	setMode(t, c, ModeHeat)
	if c.HeatingActive() != HeatingOff {
		t.Fatal("heating turned on inside the deadband")
	}
	if len(pub.getMessages()) != 0 {
		t.Fatal("published inside the deadband")
	}

	if _, err := c.SetTargetTemperature(context.Background(), 22); err != nil {
		t.Fatalf("SetTargetTemperature() error = %v", err)
	}
	if c.HeatingActive() != HeatingHeat {
		t.Error("raising the setpoint above the band did not start heating")
	}
	if msgs := pub.getMessages(); !equalStates(msgs, "ON") {
		t.Errorf("published %v, want [ON]", states(msgs))
	}
}

func TestController_MalformedTelemetryLeavesStateUntouched(t *testing.T) {
	c, pub := newRunningController(t, testConfig())
	sendTemperature(t, c, 21)
	setMode(t, c, ModeHeat)
	before := c.Snapshot()

	for _, payload := range []string{`garbage`, `[]`, `{"battery":50}`, `{"temperature":"hot"}`} {
		err := c.HandleTelemetryMessage("zigbee2mqtt/sensor", []byte(payload))
		if !errors.Is(err, ErrMalformedTelemetry) {
			t.Errorf("HandleTelemetryMessage(%s) error = %v, want ErrMalformedTelemetry", payload, err)
		}
	}

	if after := c.Snapshot(); !after.sameState(before) || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("snapshot changed: before %+v after %+v", before, after)
	}
	if len(pub.getMessages()) != 0 {
		t.Error("malformed telemetry caused a publish")
	}
}

func TestController_PartialTelemetry(t *testing.T) {
	c, _ := newRunningController(t, testConfig())

	if err := c.HandleTelemetryMessage("zigbee2mqtt/sensor",
		[]byte(`{"temperature":21.5,"battery":90,"linkquality":120}`)); err != nil {
		t.Fatalf("HandleTelemetryMessage() error = %v", err)
	}
	if err := c.HandleTelemetryMessage("zigbee2mqtt/sensor", []byte(`{"humidity":40}`)); err != nil {
		t.Fatalf("HandleTelemetryMessage() error = %v", err)
	}

	if got := c.CurrentTemperature(); got != 21.5 {
		t.Errorf("CurrentTemperature() = %v, want 21.5 kept from earlier reading", got)
	}
	if got := c.CurrentHumidity(); got != 40 {
		t.Errorf("CurrentHumidity() = %v, want 40", got)
	}
	if c.Snapshot().Sensor.LastSeen == nil {
		t.Error("Sensor.LastSeen not set")
	}
}

func TestController_SensorMetadata(t *testing.T) {
	c, _ := newRunningController(t, testConfig())

	if err := c.HandleTelemetryMessage("zigbee2mqtt/sensor",
		[]byte(`{"temperature":21,"humidity":45,"battery":88,"linkquality":102,"pressure":1013.2,"voltage":2950}`)); err != nil {
		t.Fatalf("HandleTelemetryMessage() error = %v", err)
	}

	sensor := c.Snapshot().Sensor
	if sensor.Battery == nil || *sensor.Battery != 88 {
		t.Errorf("Battery = %v, want 88", sensor.Battery)
	}
	if sensor.Pressure == nil || *sensor.Pressure != 1013.2 {
		t.Errorf("Pressure = %v, want 1013.2", sensor.Pressure)
	}
	if sensor.Voltage == nil || *sensor.Voltage != 2950 {
		t.Errorf("Voltage = %v, want 2950", sensor.Voltage)
	}
}

func TestController_OnChange(t *testing.T) {
	pub := newMockPublisher()
	c := NewController(testConfig(), pub, nil, nil)

	changes := make(chan Snapshot, 16)
	c.SetOnChange(func(s Snapshot) { changes <- s })
	startController(t, c)

	sendTemperature(t, c, 21.5)
	select {
	case s := <-changes:
		if s.CurrentTemperature != 21.5 {
			t.Errorf("change CurrentTemperature = %v, want 21.5", s.CurrentTemperature)
		}
	case <-time.After(time.Second):
		t.Fatal("no change notification after telemetry")
	}

	// Re-applying the current setpoint changes nothing.
	if _, err := c.SetTargetTemperature(context.Background(), DefaultTargetTemperature); err != nil {
		t.Fatalf("SetTargetTemperature() error = %v", err)
	}
	select {
	case s := <-changes:
		t.Errorf("unexpected change notification: %+v", s)
	default:
	}
}

func TestController_Resync(t *testing.T) {
	c, pub := newRunningController(t, testConfig())

	// In sync: nothing to do.
	if err := c.Resync(context.Background()); err != nil {
		t.Fatalf("Resync() error = %v", err)
	}
	if len(pub.getMessages()) != 0 {
		t.Fatal("Resync() published while in sync")
	}

	sendTemperature(t, c, 18)
	setMode(t, c, ModeHeat)
	pub.ack(0, errors.New("not connected"))
	waitFor(t, "failure applied", func() bool { return !c.Snapshot().PublishPending })

	if err := c.Resync(context.Background()); err != nil {
		t.Fatalf("Resync() error = %v", err)
	}
	if msgs := pub.getMessages(); !equalStates(msgs, "ON", "ON") {
		t.Errorf("published %v, want [ON ON]", states(msgs))
	}
}

func TestController_StoppedAndRunTwice(t *testing.T) {
	c := NewController(testConfig(), newMockPublisher(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	waitFor(t, "loop running", c.running.Load)
	if err := c.Run(context.Background()); !errors.Is(err, ErrControllerRunning) {
		t.Errorf("second Run() error = %v, want ErrControllerRunning", err)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() error = %v, want nil on cancellation", err)
	}

	if err := c.SetMode(context.Background(), ModeHeat); !errors.Is(err, ErrControllerStopped) {
		t.Errorf("SetMode() after stop error = %v, want ErrControllerStopped", err)
	}
	if err := c.HandleTelemetryMessage("t", []byte(`{"temperature":20}`)); !errors.Is(err, ErrControllerStopped) {
		t.Errorf("HandleTelemetryMessage() after stop error = %v, want ErrControllerStopped", err)
	}

	// Getters still work.
	if c.Mode() != ModeOff {
		t.Errorf("Mode() = %v after stop, want off", c.Mode())
	}
}

func TestController_MutatorHonoursContextBeforeRun(t *testing.T) {
	c := NewController(testConfig(), newMockPublisher(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := c.SetMode(ctx, ModeHeat); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SetMode() before Run error = %v, want context.DeadlineExceeded", err)
	}
}

func TestController_ConcurrentReadsAndWrites(t *testing.T) {
	c, pub := newRunningController(t, testConfig())
	pub.autoAck = true
	setMode(t, c, ModeHeat)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = c.Snapshot()
					_ = c.HeatingActive()
					_ = c.TargetTemperature()
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		sendTemperature(t, c, 18+float64(i%6))
		if _, err := c.SetTargetTemperature(context.Background(), 19+float64(i%3)); err != nil {
			t.Fatalf("SetTargetTemperature() error = %v", err)
		}
	}

	close(stop)
	wg.Wait()

	// Whatever happened, consecutive publishes must alternate.
	msgs := pub.getMessages()
	for i := 1; i < len(msgs); i++ {
		if msgs[i].State == msgs[i-1].State {
			t.Fatalf("consecutive duplicate publishes %v", states(msgs))
		}
	}
}

func TestController_RestoreSettings(t *testing.T) {
	repo := &memSettingsRepo{stored: &Settings{TargetTemperature: 23, Mode: ModeHeat}}
	pub := newMockPublisher()
	c := NewController(testConfig(), pub, repo, nil)

	if err := c.RestoreSettings(context.Background()); err != nil {
		t.Fatalf("RestoreSettings() error = %v", err)
	}

	if c.TargetTemperature() != 23 || c.Mode() != ModeHeat {
		t.Errorf("restored target=%v mode=%v, want 23/heat", c.TargetTemperature(), c.Mode())
	}
	if c.HeatingActive() != HeatingOff {
		t.Error("restore must not recompute")
	}

	startController(t, c)
	if len(pub.getMessages()) != 0 {
		t.Fatal("restore caused a publish")
	}

	sendTemperature(t, c, 20)
	if msgs := pub.getMessages(); !equalStates(msgs, "ON") {
		t.Errorf("published %v after first reading, want [ON]", states(msgs))
	}

	if err := c.RestoreSettings(context.Background()); !errors.Is(err, ErrControllerRunning) {
		t.Errorf("RestoreSettings() while running error = %v, want ErrControllerRunning", err)
	}
}

func TestController_RestoreSettingsNotFound(t *testing.T) {
	c := NewController(testConfig(), newMockPublisher(), &memSettingsRepo{}, nil)

	if err := c.RestoreSettings(context.Background()); err != nil {
		t.Fatalf("RestoreSettings() error = %v", err)
	}
	if c.TargetTemperature() != DefaultTargetTemperature || c.Mode() != ModeOff {
		t.Error("defaults changed when nothing was stored")
	}
}

func TestController_SavesSettingsOnChange(t *testing.T) {
	repo := &memSettingsRepo{}
	c := NewController(testConfig(), newMockPublisher(), repo, nil)
	startController(t, c)

	if _, err := c.SetTargetTemperature(context.Background(), 22.3); err != nil {
		t.Fatalf("SetTargetTemperature() error = %v", err)
	}
	setMode(t, c, ModeHeat)

	// No change, no write.
	if _, err := c.SetTargetTemperature(context.Background(), 22.5); err != nil {
		t.Fatalf("SetTargetTemperature() error = %v", err)
	}
	setMode(t, c, ModeHeat)

	if got := repo.saveCount(); got != 2 {
		t.Errorf("saves = %d, want 2", got)
	}
	stored, _ := repo.Load(context.Background())
	if stored.TargetTemperature != 22.5 || stored.Mode != ModeHeat {
		t.Errorf("stored = %+v, want 22.5/heat", stored)
	}
}
