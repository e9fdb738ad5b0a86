// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// InteractionsTotal tracks interactions created, by type.
	InteractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_total",
			Help: "Total interactions created",
		},
		[]string{"type"},
	)

	// StatusTransitionsTotal tracks status change requests and whether they were applied.
	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interaction_status_transitions_total",
			Help: "Status transitions requested, by target status and outcome",
		},
		[]string{"status", "outcome"},
	)

	// LiveEventsTotal tracks realtime events by event name and direction.
	LiveEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_events_total",
			Help: "Realtime channel events published or received",
		},
		[]string{"event", "direction"},
	)

	// RealtimeSessionsActive tracks open realtime channel connections in this process.
	RealtimeSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_sessions_active",
			Help: "Number of open realtime channel connections",
		},
	)

	// SSEConnectionsActive tracks open server-sent event streams.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// UnreadMessages tracks the last computed unread count of the session in this process.
	UnreadMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "unread_messages",
			Help: "Unread message count of the active session",
		},
	)

	// OptimisticRollbacksTotal tracks local optimistic updates undone after a failed call.
	OptimisticRollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimistic_rollbacks_total",
			Help: "Optimistic local updates rolled back after a failed call",
		},
		[]string{"action"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// Status transition outcomes.
const (
	TransitionApplied  = "applied"
	TransitionNoop     = "noop"
	TransitionRejected = "rejected"
)

// RecordTransition records the outcome of a status change request.
func RecordTransition(status, outcome string) {
	StatusTransitionsTotal.WithLabelValues(status, outcome).Inc()
}

// RecordLiveEvent records a realtime event; direction is "in" or "out".
func RecordLiveEvent(event, direction string) {
	LiveEventsTotal.WithLabelValues(event, direction).Inc()
}

// IncrementRealtimeSessions increments the open realtime connection count.
func IncrementRealtimeSessions() {
	RealtimeSessionsActive.Inc()
}

// DecrementRealtimeSessions decrements the open realtime connection count.
func DecrementRealtimeSessions() {
	RealtimeSessionsActive.Dec()
}

// RecordRollback records an undone optimistic update.
func RecordRollback(action string) {
	OptimisticRollbacksTotal.WithLabelValues(action).Inc()
}

// IncrementSSEConnections increments active SSE connections.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements active SSE connections.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
