// Package metrics exports session activity as Prometheus collectors.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/parley/pkg/domain"
)

// Collectors are the bot's Prometheus metrics.
type Collectors struct {
	SessionsActive prometheus.Gauge
	SessionsTotal  *prometheus.CounterVec
	NodeVisits     *prometheus.CounterVec
	NodeDuration   *prometheus.HistogramVec
	ListenTimeouts prometheus.Counter
	Messages       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parley_sessions_active",
			Help: "Number of conversations currently running",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_sessions_total",
			Help: "Finished conversations by outcome",
		}, []string{"outcome"}),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_node_visits_total",
			Help: "Total number of node visits",
		}, []string{"node_type"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parley_node_duration_seconds",
			Help:    "Time spent executing a node handler",
			Buckets: prometheus.DefBuckets,
		}, []string{"node_type"}),
		ListenTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_listen_timeouts_total",
			Help: "Listen steps that ran out of time",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_messages_total",
			Help: "Messages sent to clients by role",
		}, []string{"role"}),
	}

	for _, col := range []prometheus.Collector{
		c.SessionsActive, c.SessionsTotal, c.NodeVisits, c.NodeDuration, c.ListenTimeouts, c.Messages,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (c *Collectors) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(context.Context, *domain.SessionEvent) {
			c.SessionsActive.Inc()
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			c.SessionsActive.Dec()
			c.SessionsTotal.WithLabelValues(e.Outcome).Inc()
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			c.NodeVisits.WithLabelValues(string(e.NodeType)).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			c.NodeDuration.WithLabelValues(string(e.NodeType)).Observe(e.Duration.Seconds())
		},
		OnListenTimeout: func(context.Context, *domain.NodeEvent) {
			c.ListenTimeouts.Inc()
		},
		OnMessage: func(_ context.Context, e *domain.MessageEvent) {
			c.Messages.WithLabelValues(string(e.Message.User)).Inc()
		},
	}
}
