// Package metrics exports core.DaemonMetrics as Prometheus collectors,
// adapted from jrepp-prism-data-layer's pkg/procmgr PrometheusMetricsCollector
// own-registry pattern.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paiml/duende/internal/core"
)

// Collector owns a private Prometheus registry and one set of
// daemon-labeled metrics, refreshed by Sync from a daemon's live
// DaemonMetrics block. It does not hold a reference to any DaemonMetrics
// itself: the caller (cmd/duende's sync loop) calls Sync on its own
// schedule, keeping this package decoupled from supervision internals.
// Sync/RecordRestart may be called concurrently for different daemons.
type Collector struct {
	registry *prometheus.Registry

	mu sync.Mutex

	requestsTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	restartsTotal *prometheus.CounterVec

	cpuPercent  *prometheus.GaugeVec
	memoryBytes *prometheus.GaugeVec
	openFDs     *prometheus.GaugeVec
	threadCount *prometheus.GaugeVec

	requestDuration *prometheus.HistogramVec

	lastRequests map[string]uint64
	lastErrors   map[string]uint64
	lastDurCount map[string]int
}

// NewCollector builds a Collector under the given namespace (defaults to
// "duende" when empty).
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "duende"
	}

	c := &Collector{
		registry:     prometheus.NewRegistry(),
		lastRequests: make(map[string]uint64),
		lastErrors:   make(map[string]uint64),
		lastDurCount: make(map[string]int),

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daemon_requests_total",
			Help:      "Total requests observed by a daemon, as reported through DaemonMetrics.ObserveRequest.",
		}, []string{"daemon"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daemon_errors_total",
			Help:      "Total failed requests observed by a daemon.",
		}, []string{"daemon"}),
		restartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daemon_restarts_total",
			Help:      "Total restart attempts the manager has made for a daemon.",
		}, []string{"daemon"}),
		cpuPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daemon_cpu_percent",
			Help:      "Most recently sampled CPU usage percentage.",
		}, []string{"daemon"}),
		memoryBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daemon_memory_bytes",
			Help:      "Most recently sampled resident memory in bytes.",
		}, []string{"daemon"}),
		openFDs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daemon_open_fds",
			Help:      "Most recently sampled open file descriptor count.",
		}, []string{"daemon"}),
		threadCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daemon_thread_count",
			Help:      "Most recently sampled thread count.",
		}, []string{"daemon"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "daemon_request_duration_milliseconds",
			Help:      "Request duration in milliseconds, as recorded by ObserveRequest.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"daemon"}),
	}

	c.registry.MustRegister(
		c.requestsTotal, c.errorsTotal, c.restartsTotal,
		c.cpuPercent, c.memoryBytes, c.openFDs, c.threadCount,
		c.requestDuration,
	)
	return c
}

// Registry exposes the private registry for HTTP handler setup
// (promhttp.HandlerFor).
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Sync pulls the current values out of m and adds the delta onto the
// counters (DaemonMetrics' counters are cumulative and never reset, so
// Sync is safe to call on every tick without double-counting), and sets
// the gauges to the latest sampled values.
func (c *Collector) Sync(daemon string, m *core.DaemonMetrics) {
	if m == nil {
		return
	}

	requests := m.RequestsTotal.Load()
	errors := m.ErrorsTotal.Load()

	c.mu.Lock()
	c.requestsTotal.WithLabelValues(daemon).Add(float64(requests - c.lastRequests[daemon]))
	c.errorsTotal.WithLabelValues(daemon).Add(float64(errors - c.lastErrors[daemon]))
	c.lastRequests[daemon] = requests
	c.lastErrors[daemon] = errors

	c.cpuPercent.WithLabelValues(daemon).Set(float64(m.CPUPercent.Load()) / 100)
	c.memoryBytes.WithLabelValues(daemon).Set(float64(m.MemoryBytes.Load()))
	c.openFDs.WithLabelValues(daemon).Set(float64(m.OpenFDs.Load()))
	c.threadCount.WithLabelValues(daemon).Set(float64(m.ThreadCount.Load()))

	durations := m.DurationSnapshot()
	for _, ms := range durations[c.lastDurCount[daemon]:] {
		c.requestDuration.WithLabelValues(daemon).Observe(ms)
	}
	c.lastDurCount[daemon] = len(durations)
	c.mu.Unlock()
}

// RecordRestart increments the restart counter for a daemon,
// independent of Sync's polling cadence. The manager does not call it;
// the counter only moves when a caller records a restart explicitly.
func (c *Collector) RecordRestart(daemon string) {
	c.restartsTotal.WithLabelValues(daemon).Inc()
}
