// Package metrics exposes Prometheus instrumentation for the dispatcher and cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/hoppr-go/internal/cache"
)

// Dispatch outcomes.
const (
	OutcomeRedirected  = "redirected"
	OutcomeNoMatch     = "no_match"
	OutcomeRejected    = "rejected"
	OutcomeLookupError = "lookup_error"
)

var cacheDesc = prometheus.NewDesc(
	"hoppr_cache_operations_total",
	"Redirect cache operations by kind",
	[]string{"backend", "op"},
	nil,
)

var cacheItemsDesc = prometheus.NewDesc(
	"hoppr_cache_items",
	"Entries currently held by the redirect cache",
	[]string{"backend"},
	nil,
)

// Metrics holds the application collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	dispatches     *prometheus.CounterVec
	trackFailures  prometheus.Counter
	dispatchTiming prometheus.Histogram
}

// New creates and registers the collectors. stats may be nil.
func New(stats cache.StatsProvider) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hoppr_dispatch_total",
			Help: "Requests seen by the redirect dispatcher by outcome",
		}, []string{"outcome"}),
		trackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hoppr_track_failures_total",
			Help: "Click events that could not be stored",
		}),
		dispatchTiming: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hoppr_dispatch_duration_seconds",
			Help:    "Time spent matching and validating redirected requests",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}

	reg.MustRegister(
		m.dispatches,
		m.trackFailures,
		m.dispatchTiming,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if stats != nil {
		reg.MustRegister(&cacheCollector{stats: stats})
	}
	return m
}

// Dispatch counts one dispatcher outcome.
func (m *Metrics) Dispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(outcome).Inc()
}

// ObserveDispatch records how long a matched request took to handle.
func (m *Metrics) ObserveDispatch(d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchTiming.Observe(d.Seconds())
}

// TrackFailed counts a click that could not be stored.
func (m *Metrics) TrackFailed() {
	if m == nil {
		return
	}
	m.trackFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// cacheCollector reads cache counters on each scrape.
type cacheCollector struct {
	stats cache.StatsProvider
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheDesc
	ch <- cacheItemsDesc
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Stats()
	for op, v := range map[string]int64{"hit": s.Hits, "miss": s.Misses, "set": s.Sets} {
		ch <- prometheus.MustNewConstMetric(cacheDesc, prometheus.CounterValue, float64(v), s.Backend, op)
	}
	ch <- prometheus.MustNewConstMetric(cacheItemsDesc, prometheus.GaugeValue, float64(s.Items), s.Backend)
}
