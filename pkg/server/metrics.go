package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "debugwire").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics holds the Prometheus metrics for the debug server. A nil
// *Metrics is valid and records nothing, which keeps unit tests free of
// registry bookkeeping.
type Metrics struct {
	activeSessions prometheus.Gauge
	sessionsTotal  prometheus.Counter
	eventsTotal    *prometheus.CounterVec
	protocolErrors *prometheus.CounterVec
	broadcastTicks prometheus.Counter
	handlerPanics  prometheus.Counter
	deferredTotal  prometheus.Counter
	bytesSent      prometheus.Counter
	bytesReceived  prometheus.Counter
}

// NewMetrics creates and registers the server metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := MetricsConfig{
		Namespace: "debugwire",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "sessions_active",
			Help:        "Number of live debugger sessions.",
			ConstLabels: cfg.ConstLabels,
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "sessions_total",
			Help:        "Total debugger sessions accepted.",
			ConstLabels: cfg.ConstLabels,
		}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "events_total",
			Help:        "Client events by dispatch result.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"result"}),
		protocolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "protocol_errors_total",
			Help:        "Protocol-level errors by kind.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),
		broadcastTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "broadcast_ticks_total",
			Help:        "Broadcast fan-out passes executed.",
			ConstLabels: cfg.ConstLabels,
		}),
		handlerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "handler_panics_total",
			Help:        "Handlers that faulted and were recovered.",
			ConstLabels: cfg.ConstLabels,
		}),
		deferredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "deferred_requests_total",
			Help:        "Requests left pending by their handler.",
			ConstLabels: cfg.ConstLabels,
		}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "bytes_sent_total",
			Help:        "Bytes sent to debugger clients.",
			ConstLabels: cfg.ConstLabels,
		}),
		bytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "bytes_received_total",
			Help:        "Bytes received from debugger clients.",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) event(result string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) protocolError(kind string) {
	if m == nil {
		return
	}
	m.protocolErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) broadcastTick() {
	if m == nil {
		return
	}
	m.broadcastTicks.Inc()
}

func (m *Metrics) handlerPanic() {
	if m == nil {
		return
	}
	m.handlerPanics.Inc()
}

func (m *Metrics) deferred() {
	if m == nil {
		return
	}
	m.deferredTotal.Inc()
}

func (m *Metrics) sent(n int) {
	if m == nil {
		return
	}
	m.bytesSent.Add(float64(n))
}

func (m *Metrics) received(n int) {
	if m == nil {
		return
	}
	m.bytesReceived.Add(float64(n))
}
