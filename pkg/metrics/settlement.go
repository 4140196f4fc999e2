package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records settlement commits, webhook notifications and data API latency.
// A zero value (or nil) is a no-op so callers never need to guard.
type SettlementMetrics struct {
	commits       *prometheus.CounterVec
	settled       prometheus.Counter
	notifications *prometheus.CounterVec
	dataAPI       *prometheus.HistogramVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_commits_total",
		Help: "Settlement confirmations by outcome.",
	}, []string{"outcome"})
	settled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_services_settled_total",
		Help: "Services marked settled.",
	})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_notifications_total",
		Help: "Settlement webhook calls by kind and outcome.",
	}, []string{"kind", "outcome"})
	dataAPI := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "data_api_request_duration_seconds",
		Help:    "Latency of data API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	reg.MustRegister(commits, settled, notifications, dataAPI)
	return &SettlementMetrics{
		commits:       commits,
		settled:       settled,
		notifications: notifications,
		dataAPI:       dataAPI,
	}
}

// ObserveCommit counts one confirmation and the services it settled.
func (m *SettlementMetrics) ObserveCommit(outcome string, settledCount int) {
	if m == nil || m.commits == nil {
		return
	}
	m.commits.WithLabelValues(normalizeLabel(outcome)).Inc()
	if settledCount > 0 {
		m.settled.Add(float64(settledCount))
	}
}

// ObserveNotification counts one webhook call.
func (m *SettlementMetrics) ObserveNotification(kind, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// ObserveDataAPIRequest records the latency of one data API call.
func (m *SettlementMetrics) ObserveDataAPIRequest(operation, outcome string, duration time.Duration) {
	if m == nil || m.dataAPI == nil {
		return
	}
	m.dataAPI.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
