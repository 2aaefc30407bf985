package translate

import (
	"github.com/prometheus/client_golang/prometheus"

	"namelens/internal/oracle"
)

// Metrics are the translator's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	translations      *prometheus.CounterVec
	cacheHits         prometheus.Counter
	guardTokens       *prometheus.CounterVec
	guardDropped      *prometheus.CounterVec
	oracleCalls       *prometheus.CounterVec
	learned           prometheus.Counter
	coverageFallbacks prometheus.Counter
	duration          prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "namelens",
			Name:      "translations_total",
			Help:      "Translations by strategy and alias source.",
		}, []string{"strategy", "source"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "namelens",
			Name:      "cache_hits_total",
			Help:      "Translations served from the result cache.",
		}),
		guardTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "namelens",
			Subsystem: "guard",
			Name:      "tokens_total",
			Help:      "Unknown tokens seen by the guard, by verdict.",
		}, []string{"verdict"}),
		guardDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "namelens",
			Subsystem: "guard",
			Name:      "dropped_total",
			Help:      "Tokens kept from the oracle, by reason.",
		}, []string{"reason"}),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "namelens",
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Oracle calls by outcome.",
		}, []string{"outcome"}),
		learned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "namelens",
			Name:      "learned_entries_total",
			Help:      "Entries written to the learned dictionary.",
		}),
		coverageFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "namelens",
			Name:      "coverage_fallbacks_total",
			Help:      "Natural aliases replaced by literal ones after a coverage miss.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "namelens",
			Name:      "translate_duration_seconds",
			Help:      "Time spent in one translation.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 15},
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.translations,
			m.cacheHits,
			m.guardTokens,
			m.guardDropped,
			m.oracleCalls,
			m.learned,
			m.coverageFallbacks,
			m.duration,
		)
	}
	return m
}

func (m *Metrics) observe(res Result) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(res.Strategy.String(), string(res.Source)).Inc()
	m.duration.Observe(res.Duration.Seconds())
	if res.Cached {
		m.cacheHits.Inc()
		return
	}
	m.guardTokens.WithLabelValues("kept").Add(float64(res.Guard.Kept))
	m.guardTokens.WithLabelValues("dropped").Add(float64(res.Guard.Dropped))
	for reason, n := range res.Guard.Reasons {
		m.guardDropped.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) observeOracle(out oracle.Outcome) {
	if m == nil || out.Calls == 0 {
		return
	}
	outcome := "ok"
	switch {
	case out.Err != nil:
		outcome = string(oracle.Classify(out.Err))
	case len(out.Missing) > 0:
		outcome = "partial"
	}
	m.oracleCalls.WithLabelValues(outcome).Add(float64(out.Calls))
}

func (m *Metrics) observeLearned(n int) {
	if m == nil {
		return
	}
	m.learned.Add(float64(n))
}

func (m *Metrics) observeCoverageFallback() {
	if m == nil {
		return
	}
	m.coverageFallbacks.Inc()
}
