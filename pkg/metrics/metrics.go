// Package metrics exposes Prometheus metrics for scrapes, alerts and
// notifications. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ticket_hunter"

type Metrics struct {
	ScrapeAttempts  *prometheus.CounterVec
	ScrapeDuration  *prometheus.HistogramVec
	AlertsProcessed *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	LastPrice       *prometheus.GaugeVec
	PassDuration    prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New registers every collector on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScrapeAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_attempts_total",
			Help:      "Scrape attempts by source and outcome (ok, error).",
		}, []string{"source", "outcome"}),
		ScrapeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Duration of a single scrape attempt.",
			Buckets:   []float64{1, 5, 10, 15, 20, 30, 45, 60, 90},
		}, []string{"source"}),
		AlertsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_processed_total",
			Help:      "Alerts processed by outcome (succeeded, failed).",
		}, []string{"outcome"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by trigger reason and outcome (sent, failed).",
		}, []string{"reason", "outcome"}),
		LastPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_price",
			Help:      "Most recently observed price per alert.",
		}, []string{"alert"}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of one full pass over active alerts.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 8),
		}),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveScrape(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ScrapeAttempts.WithLabelValues(source, outcome).Inc()
	m.ScrapeDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) AlertProcessed(ok bool) {
	if m == nil {
		return
	}
	outcome := "succeeded"
	if !ok {
		outcome = "failed"
	}
	m.AlertsProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notification(reason string, sent bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !sent {
		outcome = "failed"
	}
	m.Notifications.WithLabelValues(reason, outcome).Inc()
}

func (m *Metrics) SetPrice(alert string, price float64) {
	if m == nil {
		return
	}
	m.LastPrice.WithLabelValues(alert).Set(price)
}

func (m *Metrics) ObservePass(d time.Duration) {
	if m == nil {
		return
	}
	m.PassDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
