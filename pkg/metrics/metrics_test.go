package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveScrape("stubhub", time.Second, nil)
	m.ObserveScrape("stubhub", time.Second, errors.New("boom"))
	m.ObserveScrape("stubhub", time.Second, errors.New("boom"))
	m.AlertProcessed(true)
	m.Notification("first_time", true)
	m.SetPrice("Lakers", 95.5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScrapeAttempts.WithLabelValues("stubhub", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScrapeAttempts.WithLabelValues("stubhub", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsProcessed.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("first_time", "sent")))
	assert.Equal(t, 95.5, testutil.ToFloat64(m.LastPrice.WithLabelValues("Lakers")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveScrape("viagogo", time.Second, nil)
		m.AlertProcessed(false)
		m.Notification("price_drop", false)
		m.SetPrice("x", 1)
		m.ObservePass(time.Minute)
	})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.AlertProcessed(false)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `ticket_hunter_alerts_processed_total{outcome="failed"} 1`)
}
