package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "faqdesk"

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	AnswerDuration   *prometheus.HistogramVec
	AnswerTotal      *prometheus.CounterVec
	AnswerCandidates prometheus.Histogram
	ActionsTotal     *prometheus.CounterVec
	AbsorbedTotal    *prometheus.CounterVec
	QuotaRejections  prometheus.Counter
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		AnswerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "answer_duration_seconds",
				Help:      "Answer orchestration duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"mode"},
		),

		AnswerTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answer_total",
				Help:      "Total answer requests by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		AnswerCandidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "answer_candidates",
				Help:      "Number of candidates returned per answer",
				Buckets:   []float64{0, 1, 2, 3, 5, 8},
			},
		),

		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "engagement_actions_total",
				Help:      "Recorded end-user actions by kind",
			},
			[]string{"action"},
		),

		AbsorbedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "absorbed_failures_total",
				Help:      "Failures absorbed into a degraded result, by stage",
			},
			[]string{"stage"},
		),

		QuotaRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_rejections_total",
				Help:      "Production queries rejected for exceeding the monthly quota",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total cache hits",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total cache misses",
			},
			[]string{"cache_type"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.AnswerDuration,
		m.AnswerTotal,
		m.AnswerCandidates,
		m.ActionsTotal,
		m.AbsorbedTotal,
		m.QuotaRejections,
		m.CacheHits,
		m.CacheMisses,
		m.HTTPRequests,
		m.HTTPDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAnswer(mode domain.AnswerMode, outcome string, candidates int, elapsed time.Duration) {
	m.AnswerTotal.WithLabelValues(string(mode), outcome).Inc()
	m.AnswerDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	if outcome == "answered" {
		m.AnswerCandidates.Observe(float64(candidates))
	}
}

func (m *Metrics) ObserveAction(kind domain.ActionKind) {
	m.ActionsTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ObserveAbsorbed(stage string) {
	m.AbsorbedTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveQuotaRejection() {
	m.QuotaRejections.Inc()
}

// ObserveCache counts a lookup on the named cache
func (m *Metrics) ObserveCache(cacheType string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(cacheType).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
