// Package metrics exposes klock's Prometheus collectors: lease verdicts,
// acquisitions, active lease count, and HTTP request counts/latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector klock registers.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	VerdictsTotal      *prometheus.CounterVec
	LeaseAcquireTotal  *prometheus.CounterVec
	LeasesActive       prometheus.Gauge
	LeasesEvictedTotal prometheus.Counter
}

// New builds a Metrics registered against registerer. Passing nil skips
// registration, useful for tests that build multiple instances in the
// same process without tripping prometheus's duplicate-registration panic.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klock_http_requests_total",
				Help: "Total HTTP requests served, by route and status.",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "klock_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds, by route.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"route"},
		),
		VerdictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klock_verdicts_total",
				Help: "Intent manifest verdicts, by status (GRANTED, WAIT, DIE).",
			},
			[]string{"status"},
		),
		LeaseAcquireTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klock_lease_acquire_total",
				Help: "Lease acquisition attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		LeasesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "klock_leases_active",
				Help: "Current number of active leases.",
			},
		),
		LeasesEvictedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "klock_leases_evicted_total",
				Help: "Total leases evicted for expiry.",
			},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.VerdictsTotal,
			m.LeaseAcquireTotal,
			m.LeasesActive,
			m.LeasesEvictedTotal,
		)
	}

	return m
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordVerdict records one kernel verdict outcome.
func (m *Metrics) RecordVerdict(status string) {
	m.VerdictsTotal.WithLabelValues(status).Inc()
}

// RecordAcquire records one lease acquisition outcome.
func (m *Metrics) RecordAcquire(outcome string) {
	m.LeaseAcquireTotal.WithLabelValues(outcome).Inc()
}

// SetActiveLeases sets the current active lease gauge.
func (m *Metrics) SetActiveLeases(count int) {
	m.LeasesActive.Set(float64(count))
}

// RecordEviction adds n to the evicted-lease counter.
func (m *Metrics) RecordEviction(n int) {
	if n > 0 {
		m.LeasesEvictedTotal.Add(float64(n))
	}
}
