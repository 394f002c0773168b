// Package metrics exposes Prometheus collectors for the relay.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the relay's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so wiring stays optional in tests.
type Metrics struct {
	roundsTotal    *prometheus.CounterVec
	roundDuration  prometheus.Histogram
	streamEvents   *prometheus.CounterVec
	toolExecutions *prometheus.CounterVec
	activeStreams  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		roundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrelay",
			Name:      "rounds_total",
			Help:      "Provider rounds driven, by entry point.",
		}, []string{"entry"}),
		roundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agentrelay",
			Name:      "round_duration_seconds",
			Help:      "Wall time per provider round.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrelay",
			Name:      "stream_events_total",
			Help:      "Provider stream events relayed, by event type.",
		}, []string{"type"}),
		toolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrelay",
			Name:      "tool_executions_total",
			Help:      "Tool executions, by outcome.",
		}, []string{"outcome"}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentrelay",
			Name:      "active_streams",
			Help:      "Client streams currently open.",
		}),
	}
	reg.MustRegister(m.roundsTotal, m.roundDuration, m.streamEvents, m.toolExecutions, m.activeStreams)
	return m
}

// ObserveRound records one provider round for the given entry point.
func (m *Metrics) ObserveRound(entry string, d time.Duration) {
	if m == nil {
		return
	}
	m.roundsTotal.WithLabelValues(entry).Inc()
	m.roundDuration.Observe(d.Seconds())
}

// CountStreamEvent counts one relayed provider event.
func (m *Metrics) CountStreamEvent(eventType string) {
	if m == nil {
		return
	}
	m.streamEvents.WithLabelValues(eventType).Inc()
}

// CountToolExecution counts one executed tool call by outcome
// ("ok", "error", "skipped").
func (m *Metrics) CountToolExecution(outcome string) {
	if m == nil {
		return
	}
	m.toolExecutions.WithLabelValues(outcome).Inc()
}

// StreamOpened marks a client stream as open; the returned func closes it.
func (m *Metrics) StreamOpened() func() {
	if m == nil {
		return func() {}
	}
	m.activeStreams.Inc()
	return m.activeStreams.Dec
}
