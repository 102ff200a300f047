package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanelMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPanelMetrics(reg)

	m.ObserveDuration("country-top", 120*time.Millisecond)
	m.IncFailure("country-top")
	m.IncFailure("")
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	sum, err := fetchHistogramSum(mfs, "panel_compute_seconds", "panel", "country-top")
	require.NoError(t, err)
	assert.Greater(t, sum, 0.0)

	failures, err := fetchCounterValue(mfs, "panel_failures_total", "panel", "country-top")
	require.NoError(t, err)
	assert.Equal(t, 1.0, failures)

	unknown, err := fetchCounterValue(mfs, "panel_failures_total", "panel", "unknown")
	require.NoError(t, err)
	assert.Equal(t, 1.0, unknown)

	misses, err := fetchCounterValue(mfs, "panel_cache_lookups_total", "result", "miss")
	require.NoError(t, err)
	assert.Equal(t, 2.0, misses)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodGet, "/api/panels/{panel}", http.StatusOK, 5*time.Millisecond)
	m.Observe(http.MethodGet, "/api/panels/{panel}", http.StatusNotFound, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "http_requests_total", "status", "404")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var p *PanelMetrics
	p.ObserveDuration("x", time.Second)
	p.IncFailure("x")
	p.CacheLookup(true)

	NewPanelMetrics(nil).IncFailure("x")

	var h *HTTPMetrics
	h.Observe("GET", "/", 200, time.Second)
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
}

func TestHandlerServesTextFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPanelMetrics(reg).IncFailure("segment-aov")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `panel_failures_total{panel="segment-aov"} 1`))
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
