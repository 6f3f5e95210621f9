// Package metrics exposes Prometheus instrumentation for a Client: queue
// depth, frames sent/received/dropped, and phase/handshake outcomes. A
// Client runs fine without a Collector attached; this is purely an
// observability add-on, grounded on the prometheus client usage in the
// vango-dev example repo.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds the metrics a Client reports into. Zero value is not
// usable; construct with NewCollector.
type Collector struct {
	FramesSent     prometheus.Counter
	FramesReceived prometheus.Counter
	FramesDropped  *prometheus.CounterVec
	QueueDepth     prometheus.Gauge
	Phase          *prometheus.CounterVec
	Handshake      *prometheus.CounterVec
}

// NewCollector builds a Collector and registers its metrics with reg. role
// is a label value ("exporter" or "heartbeat") attached to every metric so
// a process running both kinds of client can tell them apart.
func NewCollector(reg prometheus.Registerer, role string) *Collector {
	labels := prometheus.Labels{"role": role}

	c := &Collector{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "zmqclient",
			Name:        "frames_sent_total",
			Help:        "Number of two-part envelopes sent to the server.",
			ConstLabels: labels,
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "zmqclient",
			Name:        "frames_received_total",
			Help:        "Number of two-part envelopes received from the server.",
			ConstLabels: labels,
		}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "zmqclient",
			Name:        "frames_dropped_total",
			Help:        "Number of received frames dropped, by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "zmqclient",
			Name:        "outbound_queue_depth",
			Help:        "Current number of payloads waiting to be sent.",
			ConstLabels: labels,
		}),
		Phase: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "zmqclient",
			Name:        "phase_transitions_total",
			Help:        "Number of times the connection state machine entered each phase.",
			ConstLabels: labels,
		}, []string{"phase"}),
		Handshake: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "zmqclient",
			Name:        "handshake_outcomes_total",
			Help:        "Handshake attempts by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(c.FramesSent, c.FramesReceived, c.FramesDropped, c.QueueDepth, c.Phase, c.Handshake)
	}
	return c
}
