package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/climate-bridge/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout bounds a single connection attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is used when the config leaves publish_timeout unset.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// statusQoS is used for the retained online/offline status and the LWT.
	statusQoS = 1

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// maxPayloadSize is the largest payload accepted for publishing (1 MB).
	maxPayloadSize = 1 << 20

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Status values published on the status topic.
const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// buildClientOptions creates paho MQTT options from climate-bridge config.
//
// Clean sessions are always used: the broker keeps no subscriptions for us
// between connections, so the session re-subscribes on every establishment.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)

	// Keep retrying the initial connection as well as reconnecting after loss.
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	// Don't resume queued outbound messages from a previous connection; the
	// controller re-decides what to send after a reconnect.
	opts.SetResumeSubs(false)

	// Deliver inbound messages one at a time in arrival order so a stale
	// reading can never overtake a newer one.
	opts.SetOrderMatters(true)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// configureLWT sets up Last Will and Testament on the status topic so
// observers learn when the bridge disappears without a clean shutdown.
func configureLWT(opts *pahomqtt.ClientOptions, cfg config.MQTTConfig) {
	if cfg.StatusTopic == "" {
		return
	}
	opts.SetBinaryWill(cfg.StatusTopic,
		buildStatusPayload(statusOffline, cfg.Broker.ClientID, "unexpected_disconnect"),
		statusQoS, true)
}

// statusPayload is the JSON body published on the status topic.
type statusPayload struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// buildStatusPayload creates the JSON payload for a status message.
func buildStatusPayload(status, clientID, reason string) []byte {
	data, err := json.Marshal(statusPayload{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// Only string fields; marshalling cannot fail.
		return []byte(`{"status":"` + status + `"}`)
	}
	return data
}
