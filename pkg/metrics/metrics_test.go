package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.PaymentCreated()
	m.PaymentCreated()
	m.PaymentApproved()
	m.Retry()
	m.AttemptTimeout()
	m.Published(nil)
	m.Published(errors.New("full"))
	m.ListenerFailed()
	m.SetListenerState(2)
	m.ObserveApproval(150 * time.Millisecond)
	m.ObserveHTTP("GET", "/payments/ids", 200, time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.PaymentsCreated), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PaymentsApproved), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Retries), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AttemptTimeouts), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsPublished.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsPublished.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ListenerFailures), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ListenerState), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/payments/ids", "200")), 0)

	err := testutil.GatherAndCompare(m.Registry, strings.NewReader(`
# HELP payflow_payments_approved_total Payments moved to APPROVED by the listener.
# TYPE payflow_payments_approved_total counter
payflow_payments_approved_total 1
`), "payflow_payments_approved_total")
	require.NoError(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PaymentCreated()
		m.PaymentApproved()
		m.Retry()
		m.AttemptTimeout()
		m.Published(nil)
		m.ListenerFailed()
		m.SetListenerState(1)
		m.ObserveApproval(time.Second)
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
}
