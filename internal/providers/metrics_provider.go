package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"time"
	"viewguard/internal/structures"
)

// ViewOutcomeCounted is the outcome label used for views that reached the counter.
const ViewOutcomeCounted = "COUNTED"

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncViewTokensIssued()
	IncViewTokenIssueDenied(reason string)
	IncViewOutcome(reason string)
	IncAntifraudCheckFailure(check string)
	SetPromptViews(views int64)
	IncAntifraudAlert(kind string)
}

type MetricsProvider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	tokensIssued     prometheus.Counter
	tokenIssueDenied *prometheus.CounterVec
	viewOutcomes     *prometheus.CounterVec
	checkFailures    *prometheus.CounterVec
	promptViewsLast  prometheus.Gauge
	antifraudAlerts  *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncViewTokensIssued() {
	m.tokensIssued.Inc()
}

func (m *MetricsProvider) IncViewTokenIssueDenied(reason string) {
	m.tokenIssueDenied.WithLabelValues(reason).Inc()
}

func (m *MetricsProvider) IncViewOutcome(reason string) {
	m.viewOutcomes.WithLabelValues(reason).Inc()
}

func (m *MetricsProvider) IncAntifraudCheckFailure(check string) {
	m.checkFailures.WithLabelValues(check).Inc()
}

func (m *MetricsProvider) SetPromptViews(views int64) {
	m.promptViewsLast.Set(float64(views))
}

func (m *MetricsProvider) IncAntifraudAlert(kind string) {
	m.antifraudAlerts.WithLabelValues(kind).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "viewguard_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "viewguard_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "viewguard_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "viewguard_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		tokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "viewguard_view_tokens_issued_total",
			Help: "Total number of issued view tokens",
		}),

		tokenIssueDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "viewguard_view_token_issue_denied_total",
			Help: "View token issuance requests rejected by the issuance limiter",
		}, []string{"reason"}),

		viewOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "viewguard_view_outcomes_total",
			Help: "Track-view outcomes by reason",
		}, []string{"reason"}),

		checkFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "viewguard_antifraud_check_failures_total",
			Help: "Anti-fraud checks that errored and were excluded from aggregation",
		}, []string{"check"}),

		promptViewsLast: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "viewguard_prompt_views_last",
			Help: "View counter of the most recently counted prompt",
		}),

		antifraudAlerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "viewguard_antifraud_alerts_total",
			Help: "Aggregate anti-fraud alerts raised",
		}, []string{"kind"}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncViewTokensIssued()                             {}
func (n *noopMetrics) IncViewTokenIssueDenied(_ string)                 {}
func (n *noopMetrics) IncViewOutcome(_ string)                          {}
func (n *noopMetrics) IncAntifraudCheckFailure(_ string)                {}
func (n *noopMetrics) SetPromptViews(_ int64)                           {}
func (n *noopMetrics) IncAntifraudAlert(_ string)                       {}
