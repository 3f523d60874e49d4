// Package metric holds the Prometheus instruments of the reflector.
package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reflector"

// Send outcome kinds for SendFailures.
const (
	KindForward = "forward"
	KindReply   = "reply"
)

// Metrics contains all reflector metrics. Each instance owns its own
// prometheus.Registry so tests never share state.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	FramesReceived    prometheus.Counter
	Replies           *prometheus.CounterVec
	Forwarded         prometheus.Counter
	SendFailures      *prometheus.CounterVec
	Supersessions     prometheus.Counter
	RateLimited       prometheus.Counter

	registry *prometheus.Registry

	mu            sync.RWMutex
	registrations func() int
}

func New() *Metrics {
	m := &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "active",
			Help:      "Open signaling connections, bound or not",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "received_total",
			Help:      "Inbound frames handed to the orchestrator",
		}),
		Replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replies",
			Name:      "total",
			Help:      "Synthesized replies by status and reason",
		}, []string{"status", "reason"}),
		Forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "forwarded_total",
			Help:      "Routed messages handed to a target connection",
		}),
		SendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "send_failures_total",
			Help:      "Frames dropped by the transport, by kind (forward, reply)",
		}, []string{"kind"}),
		Supersessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registrations",
			Name:      "superseded_total",
			Help:      "Registrations that displaced an older connection",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "rate_limited_total",
			Help:      "Inbound frames rejected by the per-connection rate limit",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.ConnectionsActive,
		m.FramesReceived,
		m.Replies,
		m.Forwarded,
		m.SendFailures,
		m.Supersessions,
		m.RateLimited,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registrations",
			Name:      "active",
			Help:      "Identities currently bound to a connection",
		}, m.registrationCount),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TrackRegistrations sets the source of the registrations gauge, read on
// scrape. A later call replaces the earlier source.
func (m *Metrics) TrackRegistrations(size func() int) {
	m.mu.Lock()
	m.registrations = size
	m.mu.Unlock()
}

func (m *Metrics) registrationCount() float64 {
	m.mu.RLock()
	size := m.registrations
	m.mu.RUnlock()
	if size == nil {
		return 0
	}
	return float64(size())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
