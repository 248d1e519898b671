package scraper

import (
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry            *prometheus.Registry
	TargetsTotal        *prometheus.CounterVec
	SessionDuration     prometheus.Histogram
	ScrollPasses        prometheus.Histogram
	ScrollStopsTotal    *prometheus.CounterVec
	ReviewsScrapedTotal prometheus.Counter
	DuplicatesTotal     prometheus.Counter
	FieldFallbacksTotal *prometheus.CounterVec
	ExpandFailuresTotal prometheus.Counter
	ErrorsTotal         *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	targets := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_targets_total",
			Help: "Target URLs processed, by outcome.",
		},
		[]string{"outcome"},
	)
	sessionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_session_duration_seconds",
			Help:    "Wall time of one browser session, open to teardown.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
	)
	scrollPasses := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_scroll_passes",
			Help:    "Scroll passes issued before the reviews panel stopped.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 400, 800},
		},
	)
	scrollStops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_scroll_stops_total",
			Help: "Finished scrolls by stop reason.",
		},
		[]string{"reason"},
	)
	reviews := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_reviews_scraped_total",
			Help: "Total number of reviews sent to the sink.",
		},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_duplicate_reviews_total",
			Help: "Review cards skipped because their review id was already written.",
		},
	)
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_field_fallbacks_total",
			Help: "Review fields replaced by their fallback value.",
		},
		[]string{"field"},
	)
	expandFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_expand_failures_total",
			Help: "Expand clicks that failed and were skipped.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(targets, sessionDuration, scrollPasses, scrollStops, reviews, duplicates, fallbacks, expandFailures, errorsTotal)

	return &Metrics{
		Registry:            registry,
		TargetsTotal:        targets,
		SessionDuration:     sessionDuration,
		ScrollPasses:        scrollPasses,
		ScrollStopsTotal:    scrollStops,
		ReviewsScrapedTotal: reviews,
		DuplicatesTotal:     duplicates,
		FieldFallbacksTotal: fallbacks,
		ExpandFailuresTotal: expandFailures,
		ErrorsTotal:         errorsTotal,
	}
}

// IncTarget counts a processed target by outcome.
func (m *Metrics) IncTarget(outcome string) {
	if m == nil {
		return
	}
	m.TargetsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSession records how long a browser session lived.
func (m *Metrics) ObserveSession(d time.Duration) {
	if m == nil {
		return
	}
	m.SessionDuration.Observe(d.Seconds())
}

// ObserveScroll records a finished scroll.
func (m *Metrics) ObserveScroll(outcome models.ScrollOutcome) {
	if m == nil {
		return
	}
	m.ScrollPasses.Observe(float64(outcome.Passes))
	m.ScrollStopsTotal.WithLabelValues(outcome.Reason).Inc()
}

// AddReviews increments the reviews counter.
func (m *Metrics) AddReviews(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReviewsScrapedTotal.Add(float64(n))
}

// AddDuplicates counts cards dropped as repeats.
func (m *Metrics) AddDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DuplicatesTotal.Add(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// AddFallbacks counts substituted fields.
func (m *Metrics) AddFallbacks(fallbacks map[string]int) {
	if m == nil {
		return
	}
	for field, n := range fallbacks {
		m.FieldFallbacksTotal.WithLabelValues(field).Add(float64(n))
	}
}

// AddExpandFailures counts failed expand clicks.
func (m *Metrics) AddExpandFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpandFailuresTotal.Add(float64(n))
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
