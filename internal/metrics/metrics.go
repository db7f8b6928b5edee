package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the lifecycle counters. A nil *Collector is a no-op so
// components can run without metrics in tests.
type Collector struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
	lockConflicts  prometheus.Counter
	notifications  *prometheus.CounterVec
	sweepRepairs   *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
	wsConnections  prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_transitions_total",
			Help: "State transitions performed, by entity and target status",
		}, []string{"entity", "to"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_webhook_events_total",
			Help: "Payment webhook deliveries, by event type and outcome",
		}, []string{"type", "outcome"}),
		lockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_optimistic_lock_conflicts_total",
			Help: "Application updates rejected for a stale version",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_notifications_total",
			Help: "Notifications stored and pushed, by outcome",
		}, []string{"outcome"}),
		sweepRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_sweep_repairs_total",
			Help: "Rows repaired by reconciliation sweeps",
		}, []string{"sweep"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hirelane_gateway_call_seconds",
			Help:    "Payment gateway call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hirelane_ws_connections",
			Help: "Open websocket connections",
		}),
	}

	c.registry.MustRegister(
		c.transitions,
		c.webhookEvents,
		c.lockConflicts,
		c.notifications,
		c.sweepRepairs,
		c.gatewayLatency,
		c.wsConnections,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) RecordTransition(entity, to string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(entity, to).Inc()
}

func (c *Collector) RecordWebhook(eventType, outcome string) {
	if c == nil {
		return
	}
	c.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (c *Collector) RecordLockConflict() {
	if c == nil {
		return
	}
	c.lockConflicts.Inc()
}

func (c *Collector) RecordNotification(outcome string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSweepRepair(sweep string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.sweepRepairs.WithLabelValues(sweep).Add(float64(n))
}

func (c *Collector) ObserveGatewayCall(op string, started time.Time, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.gatewayLatency.WithLabelValues(op, outcome).Observe(time.Since(started).Seconds())
}

func (c *Collector) WSConnected() {
	if c == nil {
		return
	}
	c.wsConnections.Inc()
}

func (c *Collector) WSDisconnected() {
	if c == nil {
		return
	}
	c.wsConnections.Dec()
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
