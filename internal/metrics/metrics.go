package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/cache"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/pipeline"
)

const namespace = "nova"

// Metrics owns a private registry with answer and cache series.
type Metrics struct {
	registry *prometheus.Registry
	verdicts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New registers answer counters plus cache gauges read from stats on scrape.
func New(stats func() cache.Stats) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Answered questions by verdict kind, retrieval mode and cache outcome.",
		}, []string{"kind", "mode", "cached"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "Time to produce a verdict.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"cached"}),
	}
	reg.MustRegister(m.verdicts, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if stats != nil {
		gauge := func(name, help string, f func(cache.Stats) float64) prometheus.GaugeFunc {
			return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      name,
				Help:      help,
			}, func() float64 { return f(stats()) })
		}
		reg.MustRegister(
			gauge("hits", "Cache hits since the last clear.", func(s cache.Stats) float64 { return float64(s.Hits) }),
			gauge("misses", "Cache misses since the last clear.", func(s cache.Stats) float64 { return float64(s.Misses) }),
			gauge("entries", "Entries currently cached.", func(s cache.Stats) float64 { return float64(s.Size) }),
			gauge("capacity", "Maximum cache entries.", func(s cache.Stats) float64 { return float64(s.Capacity) }),
		)
	}
	return m
}

// ObserveResult implements pipeline.Observer.
func (m *Metrics) ObserveResult(r pipeline.Result) {
	cached := "false"
	if r.Cached {
		cached = "true"
	}
	m.verdicts.WithLabelValues(string(r.Verdict.Kind), string(r.Mode), cached).Inc()
	m.latency.WithLabelValues(cached).Observe(r.Elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
