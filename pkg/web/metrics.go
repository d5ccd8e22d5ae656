package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/isokit/isokit/pkg/ssr"
)

// Metrics exposes render-pass and cache counters to Prometheus.
type Metrics struct {
	rendersTotal   *prometheus.CounterVec
	renderDuration prometheus.Histogram
	instances      prometheus.Counter
	deferred       prometheus.Counter
	timeouts       prometheus.Counter
	dedupHits      prometheus.Counter
	cacheLookups   *prometheus.CounterVec
	liveSessions   prometheus.Gauge
}

// NewMetrics registers the collector set with reg. Pass
// prometheus.DefaultRegisterer unless you isolate registries in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isokit",
			Name:      "renders_total",
			Help:      "Completed render passes by outcome.",
		}, []string{"outcome"}),
		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "isokit",
			Name:      "render_duration_seconds",
			Help:      "Wall time per render pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		instances: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "isokit",
			Name:      "instances_total",
			Help:      "Isomorphic instances rendered.",
		}),
		deferred: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "isokit",
			Name:      "deferred_total",
			Help:      "Instances that missed the synchronous turn.",
		}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "isokit",
			Name:      "timeouts_total",
			Help:      "Instances whose data race lost to the timeout.",
		}),
		dedupHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "isokit",
			Name:      "dedup_hits_total",
			Help:      "Stream registrations satisfied by an existing stream.",
		}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isokit",
			Name:      "cache_lookups_total",
			Help:      "Output cache lookups by result.",
		}, []string{"result"}),
		liveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "isokit",
			Name:      "live_sessions",
			Help:      "Currently connected live-update sessions.",
		}),
	}
}

// ObservePass records one completed render pass.
func (m *Metrics) ObservePass(stats ssr.Stats, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.rendersTotal.WithLabelValues(outcome).Inc()
	m.renderDuration.Observe(stats.Duration.Seconds())
	m.instances.Add(float64(stats.Instances))
	m.deferred.Add(float64(stats.Deferred))
	m.timeouts.Add(float64(stats.Timeouts))
	m.dedupHits.Add(float64(stats.DedupHits))
}

// ObserveCache records one output-cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// SessionOpened and SessionClosed track the live session gauge.
func (m *Metrics) SessionOpened() { m.liveSessions.Inc() }
func (m *Metrics) SessionClosed() { m.liveSessions.Dec() }
