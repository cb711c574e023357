// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ltienrol"

var (
	Launches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "launches_total",
		Help:      "Launch attempts by outcome reason.",
	}, []string{"outcome"})

	SyncUsersProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "grade_sync_users_processed_total",
		Help:      "Memberships examined by the grade sync job.",
	})
	SyncGradesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "grade_sync_grades_sent_total",
		Help:      "Grades persisted after at least one successful push.",
	})
	ScorePushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_pushes_total",
		Help:      "Score pushes to the remote service by result.",
	}, []string{"result"})

	MembersUnenrolled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "members_unenrolled_total",
		Help:      "Members removed after their enrolment period ended.",
	})

	TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_runs_total",
		Help:      "Scheduled task runs by task and result.",
	}, []string{"task", "result"})
)

func Handler() http.Handler { return promhttp.Handler() }
