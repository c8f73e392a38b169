package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAuth("login", nil)
	m.RecordAuth("login", errors.New("boom"))
	m.RecordAuth("login", nil)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.authOps.WithLabelValues("login", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authOps.WithLabelValues("login", "error")))

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections))

	m.RecordBroadcast(3, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.deliveries.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("pruned")))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAuth("nonce", nil)
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.RecordBroadcast(1, 1)
	})
}
