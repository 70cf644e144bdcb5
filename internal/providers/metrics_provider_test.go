package providers

import (
	"testing"
	"time"
	"viewguard/internal/structures"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	prevReg, prevGather := prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prevReg
		prometheus.DefaultGatherer = prevGather
	})
	return reg
}

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	m := NewMetricsProvider(&structures.Config{Metrics: structures.MetricsConfig{Enabled: false}})
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	// Ensure no-op methods don't panic
	m.IncRequestsTotal("/test", 200)
	m.ObserveRequestDuration("/test", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.IncViewTokensIssued()
	m.IncViewTokenIssueDenied("RL_ISSUE_GUEST")
	m.IncViewOutcome(ViewOutcomeCounted)
	m.IncAntifraudCheckFailure("rate_limit")
	m.SetPromptViews(3)
	m.IncAntifraudAlert("REJECTION_RATE_SPIKE")
}

func TestMetricsProvider_RecordsSeries(t *testing.T) {
	reg := withTestRegistry(t)

	m := NewMetricsProvider(&structures.Config{Metrics: structures.MetricsConfig{Enabled: true}})
	p, ok := m.(*MetricsProvider)
	require.True(t, ok, "should return MetricsProvider when enabled")

	m.IncRequestsTotal("POST /api/track-view", 200)
	m.IncRequestsTotal("POST /api/track-view", 429)
	m.ObserveRequestDuration("POST /api/track-view", 5*time.Millisecond)
	m.IncViewTokensIssued()
	m.IncViewTokensIssued()
	m.IncViewOutcome(ViewOutcomeCounted)
	m.IncViewOutcome("RL_GUEST_IPUA")
	m.IncViewOutcome("RL_GUEST_IPUA")
	m.IncAntifraudCheckFailure("rate_limit")
	m.SetPromptViews(17)
	m.IncAntifraudAlert("REJECTION_RATE_SPIKE")

	assert.Equal(t, 1.0, promtest.ToFloat64(p.requestsTotal.WithLabelValues("POST /api/track-view", "4xx")))
	assert.Equal(t, 2.0, promtest.ToFloat64(p.tokensIssued))
	assert.Equal(t, 2.0, promtest.ToFloat64(p.viewOutcomes.WithLabelValues("RL_GUEST_IPUA")))
	assert.Equal(t, 1.0, promtest.ToFloat64(p.checkFailures.WithLabelValues("rate_limit")))
	assert.Equal(t, 17.0, promtest.ToFloat64(p.promptViewsLast))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "viewguard_view_outcomes_total")
	assert.Contains(t, names, "viewguard_antifraud_alerts_total")
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{202, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{429, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
