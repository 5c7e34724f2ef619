// Package metrics defines the Prometheus instruments exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Write path
	PlayersRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessladder_players_registered_total",
		Help: "The total number of players registered",
	})
	PlayersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessladder_players_deleted_total",
		Help: "The total number of players deleted",
	})
	MatchesRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chessladder_matches_recorded_total",
		Help: "The total number of matches recorded, by rating update path",
	}, []string{"path"})
	MatchesEditedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessladder_matches_edited_total",
		Help: "The total number of match outcome edits",
	})
	MatchesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessladder_matches_deleted_total",
		Help: "The total number of matches deleted",
	})

	// Replay
	ReplaysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chessladder_replays_total",
		Help: "The total number of full rating replays, by trigger",
	}, []string{"trigger"})
	ReplayErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessladder_replay_errors_total",
		Help: "The total number of full rating replays that failed and rolled back",
	})
	ReplayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chessladder_replay_duration_seconds",
		Help:    "Latency of full rating replays including the batch write",
		Buckets: prometheus.DefBuckets,
	})
	ReplayedMatches = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chessladder_replay_matches",
		Help:    "Number of matches folded by each full replay",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	// Read views
	ViewDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chessladder_view_duration_seconds",
		Help:    "Latency of replay-derived read views",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chessladder_http_requests_total",
		Help: "The total number of API requests, by route template and status",
	}, []string{"method", "route", "status"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chessladder_http_request_duration_seconds",
		Help:    "Latency of API requests, by route template",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	HTTPPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessladder_http_panics_total",
		Help: "The total number of handler panics recovered",
	})

	// Event feed
	EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chessladder_event_subscribers",
		Help: "Number of connected event stream clients",
	})
)

// Labels for MatchesRecordedTotal
const (
	PathIncremental = "incremental"
	PathReplay      = "replay"
)

// Labels for ReplaysTotal
const (
	TriggerBackdated = "backdated_match"
	TriggerEdit      = "match_edit"
	TriggerDelete    = "match_delete"
	TriggerPlayer    = "player_delete"
	TriggerManual    = "manual"
	TriggerImport    = "import"
)
