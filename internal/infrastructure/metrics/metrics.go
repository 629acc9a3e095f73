package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "climate_bridge"

// Result label values.
const (
	resultOK    = "ok"
	resultError = "error"
)

// Thermostat is the subset of controller state exported as gauges.
type Thermostat struct {
	CurrentTemperature float64
	CurrentHumidity    float64
	TargetTemperature  float64
	Heating            bool
	ModeHeat           bool
	PublishPending     bool
}

// Metrics holds every collector and the registry serving them.
type Metrics struct {
	registry *prometheus.Registry

	currentTemperature prometheus.Gauge
	currentHumidity    prometheus.Gauge
	targetTemperature  prometheus.Gauge
	heating            prometheus.Gauge
	modeHeat           prometheus.Gauge
	publishPending     prometheus.Gauge

	mqttConnected    prometheus.Gauge
	messagesReceived *prometheus.CounterVec
	publishes        *prometheus.CounterVec
	publishDuration  prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		currentTemperature: gauge("current_temperature_celsius", "Last temperature reported by the sensor."),
		currentHumidity:    gauge("current_humidity_percent", "Last relative humidity reported by the sensor."),
		targetTemperature:  gauge("target_temperature_celsius", "Thermostat setpoint."),
		heating:            gauge("heating_active", "1 while the derived heating state is heat."),
		modeHeat:           gauge("mode_heat", "1 while the thermostat mode is heat, 0 when off."),
		publishPending:     gauge("publish_pending", "1 while an actuator command awaits broker acknowledgement."),
		mqttConnected:      gauge("mqtt_connected", "1 while the MQTT session is established."),

		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_messages_received_total",
			Help:      "Inbound MQTT messages by handler result.",
		}, []string{"result"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publishes_total",
			Help:      "Outbound MQTT publishes by acknowledgement result.",
		}, []string{"result"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mqtt_publish_duration_seconds",
			Help:      "Time from publish to broker acknowledgement or failure.",
			Buckets:   prometheus.DefBuckets,
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.currentTemperature,
		m.currentHumidity,
		m.targetTemperature,
		m.heating,
		m.modeHeat,
		m.publishPending,
		m.mqttConnected,
		m.messagesReceived,
		m.publishes,
		m.publishDuration,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveThermostat updates the thermostat gauges.
func (m *Metrics) ObserveThermostat(t Thermostat) {
	if m == nil {
		return
	}
	m.currentTemperature.Set(t.CurrentTemperature)
	m.currentHumidity.Set(t.CurrentHumidity)
	m.targetTemperature.Set(t.TargetTemperature)
	m.heating.Set(boolToFloat(t.Heating))
	m.modeHeat.Set(boolToFloat(t.ModeHeat))
	m.publishPending.Set(boolToFloat(t.PublishPending))
}

// SetConnected records the MQTT session state.
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	m.mqttConnected.Set(boolToFloat(connected))
}

// MessageReceived counts an inbound message; err is the handler's result.
func (m *Metrics) MessageReceived(err error) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(result(err)).Inc()
}

// PublishCompleted counts an outbound publish and its latency.
func (m *Metrics) PublishCompleted(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(result(err)).Inc()
	m.publishDuration.Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request. route should be the route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
