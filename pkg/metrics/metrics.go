// Package metrics exposes Prometheus collectors for the node and faucet clients.
//
// A nil *Metrics is valid and records nothing, so clients can be built without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aptos_client"

type SettlementOutcome string

const (
	SettlementOutcome_Settled  SettlementOutcome = "settled"
	SettlementOutcome_TimedOut SettlementOutcome = "timed_out"
	SettlementOutcome_Failed   SettlementOutcome = "failed"
)

// StatusError labels requests that never produced an HTTP status
const StatusError = "error"

type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	settlements     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "REST requests issued, by operation and HTTP status.",
		}, []string{"operation", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "REST request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Settlement waits by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.requestDuration, m.settlements)
	}
	return m
}

func (m *Metrics) ObserveRequest(operation string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) ObserveSettlement(outcome SettlementOutcome) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(string(outcome)).Inc()
}
