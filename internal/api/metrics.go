package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	sessionsCreated *prometheus.CounterVec
	sessionsLive    prometheus.GaugeFunc
	spawns          *prometheus.CounterVec
	events          *prometheus.CounterVec
	ticks           *prometheus.CounterVec
	requests        *prometheus.HistogramVec
}

func newMetrics(liveSessions func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fairpace",
			Name:      "sessions_created_total",
			Help:      "Sessions created, by run mode.",
		}, []string{"run_mode"}),
		sessionsLive: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "fairpace",
			Name:      "sessions_live",
			Help:      "Sessions currently held in memory.",
		}, liveSessions),
		spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fairpace",
			Name:      "spawns_total",
			Help:      "Spawns placed, by pattern mode and sampler stage.",
		}, []string{"mode", "stage"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fairpace",
			Name:      "performance_events_total",
			Help:      "Hit and miss events.",
		}, []string{"kind"}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fairpace",
			Name:      "director_guards_total",
			Help:      "Director guards fired, by guard name.",
		}, []string{"guard"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fairpace",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.sessionsCreated,
		m.sessionsLive,
		m.spawns,
		m.events,
		m.ticks,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
