package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics and ephemeris.TierObserver using Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	charts          *prometheus.CounterVec
	tiers           *prometheus.CounterVec
	cache           *prometheus.CounterVec
	interpretations *prometheus.CounterVec
	passages        prometheus.Histogram
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New registers the recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg; tests pass a fresh prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		charts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_charts_computed_total",
				Help: "Natal charts assembled, by house system and cache result",
			},
			[]string{"house_system", "cache"},
		),
		tiers: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_ephemeris_tier_total",
				Help: "Body positions resolved per ephemeris tier; tier=unavailable when every tier failed",
			},
			[]string{"body", "tier"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_cache_requests_total",
				Help: "Cache lookups by namespace and result",
			},
			[]string{"namespace", "result"},
		),
		interpretations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_interpretations_total",
				Help: "Interpretations produced, by generator",
			},
			[]string{"mode"},
		),
		passages: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "astro_retrieval_passages",
				Help:    "Passages returned per retrieval",
				Buckets: []float64{0, 1, 5, 10, 20, 40, 80},
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astro_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordChart counts an assembled chart; cached reports whether it came from cache.
func (r *Recorder) RecordChart(houseSystem string, cached bool) {
	if r == nil {
		return
	}
	result := "miss"
	if cached {
		result = "hit"
	}
	r.charts.WithLabelValues(houseSystem, result).Inc()
}

// ObserveTier records which ephemeris tier served a body.
func (r *Recorder) ObserveTier(body, tier string) {
	if r == nil {
		return
	}
	if tier == "" {
		tier = "unavailable"
	}
	r.tiers.WithLabelValues(body, tier).Inc()
}

// RecordCache records a cache lookup result in a namespace such as "chart" or "interp".
func (r *Recorder) RecordCache(namespace string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(namespace, result).Inc()
}

// RecordInterpretation counts an interpretation by generator ("llm" or "template").
func (r *Recorder) RecordInterpretation(mode string) {
	if r == nil {
		return
	}
	r.interpretations.WithLabelValues(mode).Inc()
}

// RecordPassages observes the size of a retrieval result.
func (r *Recorder) RecordPassages(n int) {
	if r == nil {
		return
	}
	r.passages.Observe(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(seconds)
}
