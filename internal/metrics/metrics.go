// Package metrics provides Prometheus metrics for the tracker service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the service metrics and the registry they live on.
// A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	solvesRecorded  *prometheus.CounterVec
	solvesDuplicate prometheus.Counter
	lockFailures    prometheus.Counter

	notifications *prometheus.CounterVec
	tickDuration  prometheus.Histogram
	ticksSkipped  prometheus.Counter
	tasksDue      prometheus.Gauge

	wsConnections prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for latency metrics
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors
func WithRuntimeCollectors() Option {
	return func(m *Manager) {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// NewManager creates a metrics manager on its own registry
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "dsa_tracker",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)

	m.solvesRecorded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "progress",
		Name:      "solves_recorded_total",
		Help:      "Total number of solved problems recorded, by difficulty",
	}, []string{"difficulty"})

	m.solvesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "progress",
		Name:      "solves_duplicate_total",
		Help:      "Total number of solve submissions rejected as already solved",
	})

	m.lockFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "progress",
		Name:      "lock_failures_total",
		Help:      "Total number of per-user lock acquisitions that failed",
	})

	m.notifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "reminder",
		Name:      "notifications_total",
		Help:      "Deadline reminders dispatched, by channel and result",
	}, []string{"channel", "result"})

	m.tickDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "reminder",
		Name:      "tick_duration_seconds",
		Help:      "Duration of reminder scheduler ticks",
		Buckets:   m.buckets,
	})

	m.ticksSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "reminder",
		Name:      "ticks_skipped_total",
		Help:      "Ticks skipped because the previous tick was still running",
	})

	m.tasksDue = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "reminder",
		Name:      "tasks_due_last_tick",
		Help:      "Tasks found due soon and unnotified on the last tick",
	})

	m.wsConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "notify",
		Name:      "websocket_connections",
		Help:      "Open browser notification connections",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route",
		Buckets:   m.buckets,
	}, []string{"method", "route"})

	return m
}

// Registry returns the registry metrics are registered on
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SolveRecorded counts a recorded solve
func (m *Manager) SolveRecorded(difficulty string) {
	if m == nil {
		return
	}
	m.solvesRecorded.WithLabelValues(difficulty).Inc()
}

// SolveDuplicate counts a rejected duplicate solve
func (m *Manager) SolveDuplicate() {
	if m == nil {
		return
	}
	m.solvesDuplicate.Inc()
}

// LockFailed counts a failed per-user lock acquisition
func (m *Manager) LockFailed() {
	if m == nil {
		return
	}
	m.lockFailures.Inc()
}

// NotificationSent counts one dispatch attempt on channel
func (m *Manager) NotificationSent(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

// ObserveTick records a completed scheduler tick
func (m *Manager) ObserveTick(d time.Duration, due int) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
	m.tasksDue.Set(float64(due))
}

// TickSkipped counts an overlapping tick that was skipped
func (m *Manager) TickSkipped() {
	if m == nil {
		return
	}
	m.ticksSkipped.Inc()
}

// WebsocketConnected adjusts the open connection gauge by delta
func (m *Manager) WebsocketConnected(delta int) {
	if m == nil {
		return
	}
	m.wsConnections.Add(float64(delta))
}

// ObserveHTTP records a served request
func (m *Manager) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
