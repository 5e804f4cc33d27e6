package timelog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	timersStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worklog_timers_started_total",
		Help: "Number of timers started",
	})

	timersStopped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worklog_timers_stopped_total",
		Help: "Number of timers stopped",
	})

	timerConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worklog_timer_conflicts_total",
		Help: "Start requests refused because a timer was already running",
	})

	loggedMinutes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklog_logged_minutes_total",
			Help: "Minutes recorded by stopped timers and manual entries",
		},
		[]string{"source"},
	)

	reviews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklog_time_log_reviews_total",
			Help: "Time log approval decisions",
		},
		[]string{"decision"},
	)
)
