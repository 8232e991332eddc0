package datagram

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request results used as the "result" label.
const (
	resultSuccess  = "success"
	resultFail     = "fail"
	resultRejected = "rejected"
)

// Stats is a snapshot of the request counters.
type Stats struct {
	// Total is the number of requests attempted, rejected ones included
	Total uint64

	// Succeeded is the number of workflow requests that succeeded
	Succeeded uint64

	// Rejected is the number of requests refused before reaching the
	// worker: undecryptable, no pending handshake, bad hello or empty
	Rejected uint64
}

type metrics struct {
	total     atomic.Uint64
	succeeded atomic.Uint64
	rejected  atomic.Uint64

	requests   *prometheus.CounterVec
	handshakes prometheus.Counter
	expired    prometheus.Counter
	pending    prometheus.Gauge
}

// newMetrics creates the collectors and registers them with reg when it is
// not nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bflb_datagram_requests_total",
				Help: "Total number of datagram requests by result",
			},
			[]string{"result"},
		),
		handshakes: f.NewCounter(prometheus.CounterOpts{
			Name: "bflb_datagram_handshakes_total",
			Help: "Total number of completed ECDH handshakes",
		}),
		expired: f.NewCounter(prometheus.CounterOpts{
			Name: "bflb_datagram_sessions_expired_total",
			Help: "Total number of handshakes that expired unused",
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "bflb_datagram_sessions_pending",
			Help: "Number of handshakes waiting for their payload",
		}),
	}
}

func (m *metrics) recordResult(ok bool) {
	m.total.Add(1)
	if ok {
		m.succeeded.Add(1)
		m.requests.WithLabelValues(resultSuccess).Inc()
		return
	}
	m.requests.WithLabelValues(resultFail).Inc()
}

func (m *metrics) recordRejected() {
	m.total.Add(1)
	m.rejected.Add(1)
	m.requests.WithLabelValues(resultRejected).Inc()
}

func (m *metrics) snapshot() Stats {
	return Stats{
		Total:     m.total.Load(),
		Succeeded: m.succeeded.Load(),
		Rejected:  m.rejected.Load(),
	}
}
