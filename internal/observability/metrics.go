package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "livescore_board"

// Metrics owns every Prometheus collector of the service on a dedicated registry.
type Metrics struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	pollCycles       *prometheus.CounterVec
	pollDuration     *prometheus.HistogramVec
	boardItems       prometheus.Gauge
	boardLive        prometheus.Gauge
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	streamViewers    prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

type MetricsOption func(*Metrics)

func WithNamespace(namespace string) MetricsOption {
	return func(m *Metrics) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

func WithHistogramBuckets(buckets []float64) MetricsOption {
	return func(m *Metrics) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

func WithPrometheusRegistry(registry *prometheus.Registry) MetricsOption {
	return func(m *Metrics) {
		if registry != nil {
			m.registry = registry
		}
	}
}

func NewMetrics(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		namespace:        defaultNamespace,
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)
	m.pollCycles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "poll",
		Name:      "cycles_total",
		Help:      "Poll cycles by trigger and result",
	}, []string{"trigger", "result"})
	m.pollDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "poll",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of poll cycles",
		Buckets:   m.histogramBuckets,
	}, []string{"trigger"})
	m.boardItems = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "board",
		Name:      "items",
		Help:      "Fixtures on the committed board",
	})
	m.boardLive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "board",
		Name:      "live_items",
		Help:      "Live fixtures on the committed board",
	})
	m.upstreamRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Upstream livescores requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	m.upstreamDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Duration of upstream livescores requests",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint"})
	m.streamViewers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "stream",
		Name:      "viewers",
		Help:      "Connected board stream viewers",
	})
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
		Help:      "Duration of HTTP requests",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the dedicated registry only.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObservePollCycle(trigger, result string, elapsed time.Duration) {
	m.pollCycles.WithLabelValues(trigger, result).Inc()
	m.pollDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
}

func (m *Metrics) SetBoardSize(total, live int) {
	m.boardItems.Set(float64(total))
	m.boardLive.Set(float64(live))
}

func (m *Metrics) ObserveUpstreamRequest(endpoint, outcome string, elapsed time.Duration) {
	m.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.upstreamDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) SetStreamViewers(count int) {
	m.streamViewers.Set(float64(count))
}

func (m *Metrics) ObserveHTTPRequest(route, method string, statusCode int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
