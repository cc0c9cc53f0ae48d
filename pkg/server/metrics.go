package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server
type Metrics struct {
	// Connection metrics
	activeConnections prometheus.Gauge
	connectionsTotal  prometheus.Counter

	// Login metrics
	logins *prometheus.CounterVec // by outcome: "ok" or "rejected"

	// Message flow metrics
	envelopesReceived *prometheus.CounterVec // by envelope type
	envelopesDropped  *prometheus.CounterVec // by reason
	messagesDelivered *prometheus.CounterVec // by kind: "public" or "direct"

	// Fan-out metrics
	broadcastFanout prometheus.Histogram
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// serverMetrics returns the process-wide metrics instance. promauto
// registers with the default registry, so this must only run once.
func serverMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = newMetrics()
	})
	return sharedMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		activeConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "parley_active_connections",
				Help: "Current number of open websocket connections",
			},
		),
		connectionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "parley_connections_total",
				Help: "Total number of websocket connections accepted",
			},
		),
		logins: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_logins_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		envelopesReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_envelopes_received_total",
				Help: "Total number of envelopes received from clients by type",
			},
			[]string{"type"},
		),
		envelopesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_envelopes_dropped_total",
				Help: "Total number of envelopes dropped by reason",
			},
			[]string{"reason"},
		),
		messagesDelivered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_messages_delivered_total",
				Help: "Total number of chat messages delivered to clients by kind",
			},
			[]string{"kind"},
		),
		broadcastFanout: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "parley_broadcast_fanout",
				Help:    "Number of clients that received each broadcast",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
	}
}

// RecordConnectionOpened increments the connection counters
func (m *Metrics) RecordConnectionOpened() {
	m.connectionsTotal.Inc()
	m.activeConnections.Inc()
}

// RecordConnectionClosed decrements the active connection gauge
func (m *Metrics) RecordConnectionClosed() {
	m.activeConnections.Dec()
}

// RecordLogin increments the login counter for an outcome
func (m *Metrics) RecordLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// RecordEnvelopeReceived increments the received counter for an envelope type
func (m *Metrics) RecordEnvelopeReceived(envType string) {
	m.envelopesReceived.WithLabelValues(envType).Inc()
}

// RecordEnvelopeDropped increments the dropped counter for a reason
func (m *Metrics) RecordEnvelopeDropped(reason string) {
	m.envelopesDropped.WithLabelValues(reason).Inc()
}

// RecordMessageDelivered increments the delivery counter for a message kind
func (m *Metrics) RecordMessageDelivered(kind string) {
	m.messagesDelivered.WithLabelValues(kind).Inc()
}

// RecordBroadcastFanout records how many clients received a broadcast
func (m *Metrics) RecordBroadcastFanout(recipientCount int) {
	m.broadcastFanout.Observe(float64(recipientCount))
}
