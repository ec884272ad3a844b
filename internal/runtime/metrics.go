package runtime

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "callguard"

type callOutcome string

const (
	outcomeCompleted callOutcome = "completed"
	outcomeRejected  callOutcome = "rejected"
	outcomeError     callOutcome = "callback_error"
)

// Metrics holds the Prometheus collectors for the dispatch pipeline. All
// observe methods are nil-safe so call sites do not have to branch on
// whether metrics are enabled.
type Metrics struct {
	registerer prometheus.Registerer
	registered sync.Once

	callsTotal      *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec
}

// NewMetrics builds the collector set. A nil registerer means
// prometheus.DefaultRegisterer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		registerer: registerer,
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "calls_total",
			Help:      "Total dispatched calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejections_total",
			Help:      "Calls rejected before the callback, by endpoint and pipeline stage.",
		}, []string{"endpoint", "stage"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "call_duration_seconds",
			Help:      "End-to-end dispatch latency per endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// Register registers the collectors exactly once. Later calls are no-ops.
func (m *Metrics) Register() error {
	var err error
	m.registered.Do(func() {
		for _, c := range []prometheus.Collector{m.callsTotal, m.rejectionsTotal, m.callDuration} {
			if regErr := m.registerer.Register(c); regErr != nil {
				err = regErr
				return
			}
		}
	})
	return err
}

func (m *Metrics) observeCall(endpoint string, outcome callOutcome, duration time.Duration) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(endpoint, string(outcome)).Inc()
	m.callDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Metrics) observeRejection(endpoint string, stage Stage) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(endpoint, string(stage)).Inc()
}
