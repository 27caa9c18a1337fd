package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "guardian"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Device metrics
	DevicesDiscovered *prometheus.CounterVec

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  *prometheus.CounterVec

	// Auth metrics
	AuthFailures *prometheus.CounterVec

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus all Guardian metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,

		DevicesDiscovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_discovered_total",
			Help:      "Devices reported by the device directory, by type.",
		}, []string{"type"}),

		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Token sessions currently in progress.",
		}),

		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Token sessions by outcome.",
		}, []string{"outcome"}),

		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected authentication attempts by reason.",
		}, []string{"reason"}),

		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Dispatched commands by command and result.",
		}, []string{"command", "result"}),

		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command dispatch latency.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"command"}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		r.DevicesDiscovered,
		r.SessionsActive,
		r.SessionsTotal,
		r.AuthFailures,
		r.CommandsTotal,
		r.CommandDuration,
		r.RequestsTotal,
		r.RequestDuration,
	)

	return r
}

// Register adds an extra collector to the registry.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordDiscovery counts a device reported by the directory.
func (r *Registry) RecordDiscovery(deviceType string) {
	r.DevicesDiscovered.WithLabelValues(deviceType).Inc()
}

// IncSessionActive increments the active session gauge.
func (r *Registry) IncSessionActive() {
	r.SessionsActive.Inc()
}

// DecSessionActive decrements the active session gauge.
func (r *Registry) DecSessionActive() {
	r.SessionsActive.Dec()
}

// RecordSession counts a finished session by outcome
// (authenticated, rejected, init_failed).
func (r *Registry) RecordSession(outcome string) {
	r.SessionsTotal.WithLabelValues(outcome).Inc()
}

// RecordAuthFailure counts a rejected authentication attempt.
func (r *Registry) RecordAuthFailure(reason string) {
	r.AuthFailures.WithLabelValues(reason).Inc()
}

// RecordCommand counts a dispatched command (ok, error, unknown).
func (r *Registry) RecordCommand(command, result string) {
	r.CommandsTotal.WithLabelValues(command, result).Inc()
}

// ObserveCommandDuration records dispatch latency in seconds.
func (r *Registry) ObserveCommandDuration(command string, seconds float64) {
	r.CommandDuration.WithLabelValues(command).Observe(seconds)
}

// RecordRequest counts an HTTP request.
func (r *Registry) RecordRequest(method, route, status string) {
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// ObserveRequestDuration records HTTP latency in seconds.
func (r *Registry) ObserveRequestDuration(method, route string, seconds float64) {
	r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}
