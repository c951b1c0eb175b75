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

var defaultDurationBuckets = []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80}

// Manager owns the service collectors. A nil Manager is valid and records nothing.
type Manager struct {
	namespace       string
	durationBuckets []float64
	registry        *prometheus.Registry
	runtime         bool

	repairAttempts     *prometheus.CounterVec
	decodes            *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	uploads            *prometheus.CounterVec
	activeStreams      prometheus.Gauge
	breakerTransitions *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "insights",
		durationBuckets: defaultDurationBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.repairAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "decoder",
		Name:      "repairs_total",
		Help:      "Local repair outcomes by winning stage",
	}, []string{"stage", "result"})

	m.decodes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "decoder",
		Name:      "decodes_total",
		Help:      "Finished decodes by terminal state",
	}, []string{"state", "used_final"})

	m.generationDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "generation",
		Name:      "duration_seconds",
		Help:      "Wall time from request to terminal state",
		Buckets:   m.durationBuckets,
	}, []string{"sport", "status"})

	m.uploads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "files",
		Name:      "uploads_total",
		Help:      "Data file uploads to the model provider",
	}, []string{"sport", "result"})

	m.activeStreams = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "active_streams",
		Help:      "Open server-sent event responses",
	})

	m.breakerTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "breaker_transitions_total",
		Help:      "Circuit breaker state changes by target state",
	}, []string{"upstream", "to"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   m.durationBuckets,
	}, []string{"route", "method"})
}

// Registry returns the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) RecordRepair(stage string, ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "repaired"
	}
	m.repairAttempts.WithLabelValues(stage, result).Inc()
}

func (m *Manager) RecordDecode(state string, usedFinal bool) {
	if m == nil {
		return
	}
	m.decodes.WithLabelValues(state, strconv.FormatBool(usedFinal)).Inc()
}

func (m *Manager) RecordGeneration(sport, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(sport, status).Observe(elapsed.Seconds())
}

func (m *Manager) RecordUpload(sport string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.uploads.WithLabelValues(sport, result).Inc()
}

// StreamOpened increments the open stream gauge and returns its decrement.
func (m *Manager) StreamOpened() func() {
	if m == nil {
		return func() {}
	}
	m.activeStreams.Inc()
	return m.activeStreams.Dec
}

func (m *Manager) RecordBreakerTransition(upstream, to string) {
	if m == nil {
		return
	}
	m.breakerTransitions.WithLabelValues(upstream, to).Inc()
}

func (m *Manager) RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
