// Package metrics holds the Prometheus collectors for the payment workflow.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "payflow"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	Registry *prometheus.Registry

	PaymentsCreated  prometheus.Counter
	PaymentsApproved prometheus.Counter
	Retries          prometheus.Counter
	AttemptTimeouts  prometheus.Counter
	EventsPublished  *prometheus.CounterVec
	ListenerFailures prometheus.Counter
	ListenerState    prometheus.Gauge
	ApprovalDuration prometheus.Histogram
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		PaymentsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_created_total",
			Help:      "Payments written to the store, including retries.",
		}),
		PaymentsApproved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_approved_total",
			Help:      "Payments moved to APPROVED by the listener.",
		}),
		Retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_retries_total",
			Help:      "Creation attempts retried after a failure.",
		}),
		AttemptTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_attempt_timeouts_total",
			Help:      "Creation attempts that hit the per-attempt deadline.",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events handed to the event channel by result.",
		}, []string{"result"}),
		ListenerFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_failures_total",
			Help:      "Times the approval listener stopped on a channel failure.",
		}),
		ListenerState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listener_state",
			Help:      "Approval listener state: 0 starting, 1 running, 2 stopped.",
		}),
		ApprovalDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_approval_seconds",
			Help:      "Time from the create request to an approved payment.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) PaymentCreated() {
	if m != nil {
		m.PaymentsCreated.Inc()
	}
}

func (m *Metrics) PaymentApproved() {
	if m != nil {
		m.PaymentsApproved.Inc()
	}
}

func (m *Metrics) Retry() {
	if m != nil {
		m.Retries.Inc()
	}
}

func (m *Metrics) AttemptTimeout() {
	if m != nil {
		m.AttemptTimeouts.Inc()
	}
}

// Published counts an emit attempt; result is "ok" or "error".
func (m *Metrics) Published(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(result).Inc()
}

func (m *Metrics) ListenerFailed() {
	if m != nil {
		m.ListenerFailures.Inc()
	}
}

func (m *Metrics) SetListenerState(state int) {
	if m != nil {
		m.ListenerState.Set(float64(state))
	}
}

func (m *Metrics) ObserveApproval(d time.Duration) {
	if m != nil {
		m.ApprovalDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
