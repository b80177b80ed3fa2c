package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/localipc/shmrpc/internal/wire"
)

// Metrics is the Prometheus instrumentation for one dispatcher,
// replacing the teacher's ad hoc debug counters with registered
// collectors a `/metrics` endpoint can serve.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	slotsInUse     prometheus.Gauge
}

// NewMetrics registers the dispatcher's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shmrpc",
			Name:      "requests_total",
			Help:      "Completed requests by command and status.",
		}, []string{"command", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shmrpc",
			Name:      "request_duration_seconds",
			Help:      "Time from worker pickup to response-ready, by command.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		slotsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shmrpc",
			Name:      "slots_in_use",
			Help:      "Slots currently not FREE.",
		}),
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.slotsInUse)
	return m
}

func (m *Metrics) observeCompletion(cmd wire.Command, status wire.Status, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(cmd.String(), status.String()).Inc()
	m.requestLatency.WithLabelValues(cmd.String()).Observe(seconds)
}

func (m *Metrics) setSlotsInUse(n int) {
	if m == nil {
		return
	}
	m.slotsInUse.Set(float64(n))
}
