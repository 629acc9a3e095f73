package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/climate-bridge/internal/infrastructure/config"
)

// pahoClient is the subset of pahomqtt.Client used by Session.
type pahoClient interface {
	Connect() pahomqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
}

// Session wraps paho.mqtt.golang with a long-lived broker session.
//
// It owns the connection, remembers topic routes and re-subscribes them on
// every (re)connect, and publishes asynchronously with acknowledgement
// callbacks.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Routes are subscribed exactly once per established session.
type Session struct {
	client         pahoClient
	cfg            config.MQTTConfig
	publishTimeout time.Duration

	// mu guards connected, establishments and subscriptions together.
	mu             sync.Mutex
	connected      bool
	establishments int
	subscriptions  map[string]subscription

	// Callbacks for connection events (optional).
	onConnect    func()
	onDisconnect func(err error)
	onError      func(err error)
	recorder     Recorder
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Recorder receives session events for instrumentation.
// metrics.Metrics satisfies this interface.
type Recorder interface {
	SetConnected(connected bool)
	MessageReceived(err error)
	PublishCompleted(err error, elapsed time.Duration)
}

// subscription holds route details for re-subscription on reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked one at a time, in arrival order, on paho's router
// goroutine. A handler may block until its message is applied, but must not
// wait on anything that itself waits for further inbound messages.
//
// Returns:
//   - error: Logged at WARN; does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// NewSession builds a session from configuration without connecting.
//
// Register routes with Subscribe and callbacks with the Set* methods, then
// call Connect.
func NewSession(cfg config.MQTTConfig) *Session {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg)

	s := newSession(cfg, nil)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		s.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.handleConnectionLost(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if logger := s.getLogger(); logger != nil {
			logger.Info("MQTT reconnecting", "broker", cfg.Broker.Host)
		}
	})

	s.client = pahomqtt.NewClient(opts)
	return s
}

// newSession creates a Session around an existing client.
func newSession(cfg config.MQTTConfig, client pahoClient) *Session {
	timeout := cfg.GetPublishTimeout()
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Session{
		client:         client,
		cfg:            cfg,
		publishTimeout: timeout,
		subscriptions:  make(map[string]subscription),
	}
}

// Connect starts connecting to the broker and returns immediately.
//
// paho keeps retrying in the background. A failed attempt is reported on the
// error callback wrapped in ErrConnectionFailed.
func (s *Session) Connect() {
	token := s.client.Connect()
	s.watchToken(token, func(err error) error {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	})
}

// handleConnect is called by paho each time a session is established.
func (s *Session) handleConnect() {
	s.mu.Lock()
	s.connected = true
	s.establishments++
	count := s.establishments
	for _, sub := range s.subscriptions {
		s.subscribeLocked(sub)
	}
	routes := len(s.subscriptions)
	s.mu.Unlock()

	if rec := s.getRecorder(); rec != nil {
		rec.SetConnected(true)
	}

	if logger := s.getLogger(); logger != nil {
		logger.Info("MQTT session established",
			"broker", s.cfg.Broker.Host,
			"session", count,
			"routes", routes,
		)
	}

	s.publishStatus(statusOnline, "")

	s.callbackMu.RLock()
	callback := s.onConnect
	s.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleConnectionLost is called by paho when an established connection drops.
func (s *Session) handleConnectionLost(err error) {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()

	if rec := s.getRecorder(); rec != nil {
		rec.SetConnected(false)
	}
	s.reportError(fmt.Errorf("%w: %w", ErrConnectionLost, err))

	s.callbackMu.RLock()
	callback := s.onDisconnect
	s.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// publishStatus publishes the retained bridge status without waiting.
func (s *Session) publishStatus(status, reason string) pahomqtt.Token {
	if s.cfg.StatusTopic == "" {
		return nil
	}
	payload := buildStatusPayload(status, s.cfg.Broker.ClientID, reason)
	return s.client.Publish(s.cfg.StatusTopic, statusQoS, true, payload)
}

// Close gracefully disconnects from the MQTT broker.
//
// A graceful offline status (different from the LWT crash status) is
// published first when connected.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}

	if s.IsConnected() {
		if token := s.publishStatus(statusOffline, "graceful_shutdown"); token != nil {
			token.WaitTimeout(s.publishTimeout)
		}
	}

	s.client.Disconnect(defaultDisconnectQuiesce)

	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()

	if rec := s.getRecorder(); rec != nil {
		rec.SetConnected(false)
	}
	return nil
}

// HealthCheck reports whether the session is currently connected.
func (s *Session) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !s.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()
	return connected && s.client.IsConnected()
}

// SetOnConnect sets a callback invoked on initial connect and every reconnect.
func (s *Session) SetOnConnect(callback func()) {
	s.callbackMu.Lock()
	s.onConnect = callback
	s.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback invoked when the connection is lost.
func (s *Session) SetOnDisconnect(callback func(err error)) {
	s.callbackMu.Lock()
	s.onDisconnect = callback
	s.callbackMu.Unlock()
}

// SetOnError sets a callback for asynchronous failures: connection attempts,
// lost connections and rejected subscriptions.
func (s *Session) SetOnError(callback func(err error)) {
	s.callbackMu.Lock()
	s.onError = callback
	s.callbackMu.Unlock()
}

// SetRecorder sets an instrumentation sink (optional).
func (s *Session) SetRecorder(rec Recorder) {
	s.callbackMu.Lock()
	s.recorder = rec
	s.callbackMu.Unlock()
}

func (s *Session) getRecorder() Recorder {
	s.callbackMu.RLock()
	defer s.callbackMu.RUnlock()
	return s.recorder
}

// SetLogger sets a logger for error and panic logging.
func (s *Session) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Session) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// reportError logs an asynchronous failure and forwards it to the error callback.
func (s *Session) reportError(err error) {
	if logger := s.getLogger(); logger != nil {
		logger.Error("MQTT error", "error", err)
	}

	s.callbackMu.RLock()
	callback := s.onError
	s.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// watchToken reports the token's error, if any, once it completes.
func (s *Session) watchToken(token pahomqtt.Token, wrap func(error) error) {
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			s.reportError(wrap(err))
		}
	}()
}

// wrapHandler wraps a MessageHandler with panic recovery and logging.
func (s *Session) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := s.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
				if rec := s.getRecorder(); rec != nil {
					rec.MessageReceived(fmt.Errorf("handler panic: %v", r))
				}
			}
		}()

		err := handler(msg.Topic(), msg.Payload())
		if err != nil {
			if logger := s.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
		if rec := s.getRecorder(); rec != nil {
			rec.MessageReceived(err)
		}
	}
}
