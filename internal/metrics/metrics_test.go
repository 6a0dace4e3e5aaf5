package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveTransition(t *testing.T) {
	m := New()
	m.ObserveTransition("accept_order", "committed", 5*time.Millisecond)
	m.ObserveTransition("accept_order", "committed", 5*time.Millisecond)
	m.ObserveTransition("accept_order", "INVALID_TRANSITION", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("accept_order", "committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("accept_order", "INVALID_TRANSITION")))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTransition("x", "y", 0)
		m.ObserveGateway("hold", "ok")
		m.OutboxResult("published")
		m.AuditDropped()
		m.LedgerUnrecorded("release")
		m.HTTPStarted()
		m.HTTPFinished("GET", "/", "200", 0)
	})
}

func TestMetrics_LedgerUnrecorded(t *testing.T) {
	m := New()
	m.LedgerUnrecorded("release")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerUnrecorded.WithLabelValues("release")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ledgerUnrecorded.WithLabelValues("refund")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveGateway("hold", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `payment_gateway_calls_total{operation="hold",result="ok"} 1`)
}
