package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	authOps     *prometheus.CounterVec
	connections prometheus.Gauge
	deliveries  *prometheus.CounterVec
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		authOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapgate",
			Name:      "auth_operations_total",
			Help:      "Authentication operations by outcome.",
		}, []string{"operation", "outcome"}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "swapgate",
			Name:      "ws_connections",
			Help:      "Registered WebSocket connections.",
		}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapgate",
			Name:      "broadcast_deliveries_total",
			Help:      "Per-connection broadcast results.",
		}, []string{"result"}),
	}
}

// RecordAuth counts one auth operation. A nil err is a success.
func (m *Metrics) RecordAuth(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.authOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// RecordBroadcast counts delivered and pruned connections of one broadcast.
func (m *Metrics) RecordBroadcast(delivered, pruned int) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues("delivered").Add(float64(delivered))
	m.deliveries.WithLabelValues("pruned").Add(float64(pruned))
}
