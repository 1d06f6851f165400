// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by command.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warbler_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnections is the gauge of open realtime connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warbler_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts realtime events delivered by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_websocket_events_total",
		Help: "Total realtime events published by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// SignupsTotal counts accounts created.
	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warbler_signups_total",
		Help: "Total number of successful signups",
	})

	// LoginAttemptsTotal counts logins by result (success, failure).
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_login_attempts_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})

	// FollowActionsTotal counts follow graph mutations (follow, unfollow).
	FollowActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_follow_actions_total",
		Help: "Total number of follow and unfollow operations",
	}, []string{"action"})

	// MessageActionsTotal counts message writes (posted, deleted).
	MessageActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_message_actions_total",
		Help: "Total number of messages posted and deleted",
	}, []string{"action"})

	// LikeTogglesTotal counts like toggles by resulting state.
	LikeTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_like_toggles_total",
		Help: "Total number of like toggles by resulting state",
	}, []string{"state"})

	// TimelineSize records how many messages a timeline request returned.
	TimelineSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warbler_timeline_size",
		Help:    "Number of messages returned per timeline request",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	}, []string{"kind"})
)

// ObserveQuery records the latency of a database statement.
func ObserveQuery(operation, table string, start time.Time) {
	if table == "" {
		table = "unknown"
	}
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
