package host

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeOK       = "ok"
	outcomeFailed   = "failed"
	outcomeRejected = "rejected"
)

type metrics struct {
	requests *prometheus.CounterVec
	cost     *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "userhost",
			Subsystem: "host",
			Name:      "requests_total",
			Help:      "Requests served by the host, by method and outcome.",
		}, []string{"method", "outcome"}),
		cost: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "userhost",
			Subsystem: "host",
			Name:      "request_cost",
			Help:      "Cost reported for successfully served requests.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"method"}),
	}
	reg.MustRegister(m.requests, m.cost)
	return m
}

// observe is safe on a nil receiver so dispatchers without metrics skip it.
func (m *metrics) observe(method, outcome string, cost uint64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	if outcome == outcomeOK {
		m.cost.WithLabelValues(method).Observe(float64(cost))
	}
}
