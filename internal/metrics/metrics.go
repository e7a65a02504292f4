// Package metrics holds Prometheus instruments that are used across the
// site.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SubmissionsTotal counts submit attempts by result: invalid, accepted,
	// busy, delivered, failed.
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submit attempts by result.",
		}, []string{"result"})

	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_validation_failures_total",
			Help: "Field validation failures by field and reason.",
		}, []string{"field", "reason"})

	DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contact_delivery_duration_seconds",
			Help:    "Time spent in a delivery backend.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		}, []string{"backend", "result"})

	ActiveForms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "contact_active_forms",
			Help: "Number of contact form sessions held in memory.",
		})

	FormEvictTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_form_evict_total",
			Help: "Contact form sessions torn down, by cause.",
		}, []string{"cause"})

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		ValidationFailuresTotal,
		DeliveryDuration,
		ActiveForms,
		FormEvictTotal,
		RateLimitedTotal,
	)
}
