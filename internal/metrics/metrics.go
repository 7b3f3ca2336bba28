// Package metrics exposes Prometheus collectors for the deck engine.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deck_engine"

// Metrics holds the engine's collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	analysisDuration    *prometheus.HistogramVec
	analysisCache       *prometheus.CounterVec
	optimizationRuns    *prometheus.CounterVec
	optimizationChanges prometheus.Histogram
	candidatesEvaluated prometheus.Counter
	optimizationsActive prometheus.Gauge
	httpDuration        *prometheus.HistogramVec
}

// MustNewMetrics registers the collectors with reg, reusing collectors that
// are already registered under the same name. Other registration errors
// panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Time spent analyzing a deck composition.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"format", "status"}),
		analysisCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "cache_lookups_total",
			Help:      "Analysis cache lookups by result.",
		}, []string{"result"}),
		optimizationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "runs_total",
			Help:      "Completed optimization runs by mode and stop reason.",
		}, []string{"mode", "stop_reason"}),
		optimizationChanges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "changes_per_run",
			Help:      "Number of changes returned per optimization run.",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		}),
		candidatesEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "candidates_evaluated_total",
			Help:      "Candidate substitutions scored by the optimizer.",
		}),
		optimizationsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "runs_active",
			Help:      "Optimization runs currently in progress.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route, method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}

	m.analysisDuration = register(reg, m.analysisDuration)
	m.analysisCache = register(reg, m.analysisCache)
	m.optimizationRuns = register(reg, m.optimizationRuns)
	m.optimizationChanges = register(reg, m.optimizationChanges)
	m.candidatesEvaluated = register(reg, m.candidatesEvaluated)
	m.optimizationsActive = register(reg, m.optimizationsActive)
	m.httpDuration = register(reg, m.httpDuration)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveAnalysis records one analysis.
func (m *Metrics) ObserveAnalysis(format string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.analysisDuration.WithLabelValues(format, status).Observe(d.Seconds())
}

// CacheLookup records an analysis cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.analysisCache.WithLabelValues(result).Inc()
}

// OptimizationStarted marks a run as active and returns a func that records
// its completion.
func (m *Metrics) OptimizationStarted(mode string) func(stopReason string, changes int) {
	if m == nil {
		return func(string, int) {}
	}
	m.optimizationsActive.Inc()
	return func(stopReason string, changes int) {
		m.optimizationsActive.Dec()
		m.optimizationRuns.WithLabelValues(mode, stopReason).Inc()
		m.optimizationChanges.Observe(float64(changes))
	}
}

// CandidatesEvaluated adds n scored candidates.
func (m *Metrics) CandidatesEvaluated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.candidatesEvaluated.Add(float64(n))
}

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(code)).Observe(d.Seconds())
}
