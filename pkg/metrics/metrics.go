package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waqiti/realtime-go/pkg/connection"
	"github.com/waqiti/realtime-go/pkg/router"
)

const (
	namespace = "realtime"

	// otherEvent replaces unknown event names as a label value so that a
	// misbehaving server cannot create unbounded series.
	otherEvent = "other"
)

// Metrics holds the client collectors.
type Metrics struct {
	connectionState   prometheus.Gauge
	connected         prometheus.Gauge
	connectAttempts   prometheus.Counter
	connectFailures   *prometheus.CounterVec
	connectDuration   prometheus.Histogram
	reconnects        prometheus.Counter
	eventsReceived    *prometheus.CounterVec
	eventsDropped     *prometheus.CounterVec
	cacheWriteFailure prometheus.Counter
	outboxDepth       prometheus.Gauge
	subscriptions     prometheus.Gauge
	keepaliveRTT      prometheus.Histogram
	networkReachable  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "state",
			Help:      "Connection state (0 disconnected, 1 connecting, 2 connected, 3 reconnecting, 4 failed)",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "up",
			Help:      "1 while connected to the server",
		}),
		connectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "attempts_total",
			Help:      "Total number of connection attempts",
		}),
		connectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "failures_total",
			Help:      "Total number of failed connection attempts by reason",
		}, []string{"reason"}),
		connectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "connect_duration_seconds",
			Help:      "Time from dial to an authenticated session",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "reconnects_scheduled_total",
			Help:      "Total number of scheduled reconnection attempts",
		}),
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "events_received_total",
			Help:      "Total number of known server events received",
		}, []string{"event"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "events_dropped_total",
			Help:      "Total number of server events dropped by reason",
		}, []string{"event", "reason"}),
		cacheWriteFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "write_failures_total",
			Help:      "Total number of failed cache writes",
		}),
		outboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "depth",
			Help:      "Subscription operations waiting for a connection",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "active",
			Help:      "Number of registered topic subscriptions",
		}),
		keepaliveRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "keepalive",
			Name:      "rtt_seconds",
			Help:      "Websocket ping round trip time",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		networkReachable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "reachable",
			Help:      "1 while the network monitor reports the server reachable",
		}),
	}

	collectors := []prometheus.Collector{
		m.connectionState, m.connected, m.connectAttempts, m.connectFailures,
		m.connectDuration, m.reconnects, m.eventsReceived, m.eventsDropped,
		m.cacheWriteFailure, m.outboxDepth, m.subscriptions, m.keepaliveRTT,
		m.networkReachable,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

var _ router.Observer = (*Metrics)(nil)

// Handler serves the metrics gathered from g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ConnectionState records a connection state change.
func (m *Metrics) ConnectionState(s connection.State) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(s))
	if s == connection.StateConnected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

// ConnectAttempt counts a dial attempt.
func (m *Metrics) ConnectAttempt() {
	if m == nil {
		return
	}
	m.connectAttempts.Inc()
}

// ConnectSucceeded records the time an attempt took to become a session.
func (m *Metrics) ConnectSucceeded(d time.Duration) {
	if m == nil {
		return
	}
	m.connectDuration.Observe(d.Seconds())
}

// ConnectFailed counts a failed attempt. Reason should be a small fixed
// set such as "timeout", "error" or "auth".
func (m *Metrics) ConnectFailed(reason string) {
	if m == nil {
		return
	}
	m.connectFailures.WithLabelValues(reason).Inc()
}

// ReconnectScheduled counts a scheduled retry.
func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// EventReceived counts a routed server event.
func (m *Metrics) EventReceived(name string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(name).Inc()
}

// EventDropped counts a dropped server event. Unknown event names are
// folded into one label value.
func (m *Metrics) EventDropped(name, reason string) {
	if m == nil {
		return
	}
	if reason == router.ReasonUnknown {
		name = otherEvent
	}
	m.eventsDropped.WithLabelValues(name, reason).Inc()
}

// CacheWriteFailed counts a failed cache write.
func (m *Metrics) CacheWriteFailed() {
	if m == nil {
		return
	}
	m.cacheWriteFailure.Inc()
}

// OutboxDepth records the number of queued subscription operations.
func (m *Metrics) OutboxDepth(n int) {
	if m == nil {
		return
	}
	m.outboxDepth.Set(float64(n))
}

// Subscriptions records the number of registered topics.
func (m *Metrics) Subscriptions(n int) {
	if m == nil {
		return
	}
	m.subscriptions.Set(float64(n))
}

// KeepaliveRTT records a ping round trip.
func (m *Metrics) KeepaliveRTT(d time.Duration) {
	if m == nil {
		return
	}
	m.keepaliveRTT.Observe(d.Seconds())
}

// NetworkReachable records the network monitor verdict.
func (m *Metrics) NetworkReachable(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.networkReachable.Set(1)
	} else {
		m.networkReachable.Set(0)
	}
}
