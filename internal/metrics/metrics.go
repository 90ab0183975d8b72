// Package metrics exposes the Prometheus collectors for the HTTP surface
// and the backtest pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "tradelab"

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge

	backtests     *prometheus.CounterVec
	backtestTime  *prometheus.HistogramVec
	jobsActive    prometheus.Gauge
	summaries     *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewRegistry creates a registry with the runtime collectors and every
// tradelab metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status class",
		}, []string{"method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		}),
		backtests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtests_total",
			Help:      "Backtests by strategy and outcome",
		}, []string{"strategy", "status"}),
		backtestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backtest_duration_seconds",
			Help:      "Backtest duration including the data fetch",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"strategy"}),
		jobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Async backtest jobs pending or running",
		}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Result summaries by provider and outcome",
		}, []string{"provider", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Run notifications by notifier and outcome",
		}, []string{"notifier", "status"}),
	}

	reg.MustRegister(
		r.requests, r.latency, r.inFlight,
		r.backtests, r.backtestTime, r.jobsActive,
		r.summaries, r.notifications,
	)
	return r
}

// RecordRequest records one served HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, seconds float64) {
	r.requests.WithLabelValues(method, path, statusClass(status)).Inc()
	r.latency.WithLabelValues(method, path).Observe(seconds)
}

func (r *Registry) InFlightInc() { r.inFlight.Inc() }

func (r *Registry) InFlightDec() { r.inFlight.Dec() }

// RecordBacktest records a finished backtest. status is "success" or an
// error code such as "NO_DATA".
func (r *Registry) RecordBacktest(strategy, status string, seconds float64) {
	if strategy == "" {
		strategy = "unknown"
	}
	r.backtests.WithLabelValues(strategy, status).Inc()
	r.backtestTime.WithLabelValues(strategy).Observe(seconds)
}

// JobStarted and JobFinished track async jobs in flight.
func (r *Registry) JobStarted() { r.jobsActive.Inc() }

func (r *Registry) JobFinished() { r.jobsActive.Dec() }

// RecordSummary records a summary request against a provider. The
// template fallback reports as provider "template".
func (r *Registry) RecordSummary(provider, status string) {
	r.summaries.WithLabelValues(provider, status).Inc()
}

// RecordNotification records one delivery attempt.
func (r *Registry) RecordNotification(notifier string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.notifications.WithLabelValues(notifier, status).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
