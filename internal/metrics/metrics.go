// Package metrics provides Prometheus instrumentation for the Mingle chat
// server. It exposes gauges for connection, queue, and session counts,
// counters for message and friend-event throughput, and a histogram for
// time-to-match.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mingle_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// MatchQueueSize tracks the current number of users waiting for a match.
	MatchQueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mingle_match_queue_size",
		Help: "Current number of users in the matching queue",
	})

	// ActiveChats tracks the current number of active chat sessions.
	ActiveChats = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mingle_active_chats",
		Help: "Current number of active chat sessions",
	})

	// MatchesTotal counts sessions created by the matcher.
	MatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mingle_matches_total",
		Help: "Total number of matched chat sessions",
	})

	// MatchDuration records the wait from enqueue to match.
	MatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mingle_match_duration_seconds",
		Help:    "Time from search start to match found",
		Buckets: []float64{1, 2, 5, 10, 15, 20, 25, 30},
	})

	// MessagesTotal counts relay outcomes, labeled "relayed", "dropped", or
	// "blocked".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mingle_messages_total",
		Help: "Total number of chat messages processed",
	}, []string{"outcome"})

	// FriendEventsTotal counts forwarded friendship events, labeled
	// "request", "accept", "reject", or "remove".
	FriendEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mingle_friend_events_total",
		Help: "Total number of forwarded friendship events",
	}, []string{"kind"})

	// ReportsTotal counts persisted abuse reports.
	ReportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mingle_reports_total",
		Help: "Total number of abuse reports filed",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		MatchQueueSize,
		ActiveChats,
		MatchesTotal,
		MatchDuration,
		MessagesTotal,
		FriendEventsTotal,
		ReportsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
