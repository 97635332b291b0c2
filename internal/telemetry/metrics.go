package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trivia"

// SessionMetrics counts session lifecycle transitions and answer outcomes.
type SessionMetrics struct {
	Started   *prometheus.CounterVec
	Completed *prometheus.CounterVec
	Abandoned prometheus.Counter
	Answers   *prometheus.CounterVec
	Conflicts prometheus.Counter

	// AggregationPending counts completions whose stats failed to record in the request.
	AggregationPending prometheus.Counter
}

// NewSessionMetrics registers the session metrics on reg. A nil reg keeps them unregistered.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	f := promauto.With(reg)

	return &SessionMetrics{
		Started: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Number of sessions started.",
		}, []string{"category"}),
		Completed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "completed_total",
			Help:      "Number of sessions completed.",
		}, []string{"category"}),
		Abandoned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "abandoned_total",
			Help:      "Number of sessions abandoned.",
		}),
		Answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "answers_total",
			Help:      "Number of answer submissions by outcome.",
		}, []string{"outcome"}),
		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "version_conflicts_total",
			Help:      "Number of optimistic updates that lost the race and were retried.",
		}),
		AggregationPending: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "aggregation_pending_total",
			Help:      "Number of completed sessions left for reconciliation because their stats failed to record.",
		}),
	}
}

// StatsMetrics counts aggregation outcomes.
type StatsMetrics struct {
	Recorded   prometheus.Counter
	Duplicates prometheus.Counter
}

func NewStatsMetrics(reg prometheus.Registerer) *StatsMetrics {
	f := promauto.With(reg)

	return &StatsMetrics{
		Recorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "recorded_total",
			Help:      "Number of completed sessions folded into user stats.",
		}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "duplicate_total",
			Help:      "Number of rejected repeated aggregations.",
		}),
	}
}

// LeaderboardMetrics counts rank cache lookups.
type LeaderboardMetrics struct {
	Cache *prometheus.CounterVec
}

func NewLeaderboardMetrics(reg prometheus.Registerer) *LeaderboardMetrics {
	f := promauto.With(reg)

	return &LeaderboardMetrics{
		Cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "cache_total",
			Help:      "Number of rank cache lookups by result.",
		}, []string{"result"}),
	}
}

// EventMetrics counts event handler runs.
type EventMetrics struct {
	Handled *prometheus.CounterVec
	Dropped *prometheus.CounterVec
}

func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	f := promauto.With(reg)

	return &EventMetrics{
		Handled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "event",
			Name:      "handled_total",
			Help:      "Number of event handler runs by event and result.",
		}, []string{"event", "result"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "event",
			Name:      "dropped_total",
			Help:      "Number of events published after the bus stopped.",
		}, []string{"event"}),
	}
}

// GRPCMetrics counts unary calls.
type GRPCMetrics struct {
	Calls *prometheus.CounterVec
}

func NewGRPCMetrics(reg prometheus.Registerer) *GRPCMetrics {
	f := promauto.With(reg)

	return &GRPCMetrics{
		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "calls_total",
			Help:      "Number of unary gRPC calls by method and status code.",
		}, []string{"method", "code"}),
	}
}
