package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthwatch_sync_runs_total",
		Help: "Total number of synchronization runs started.",
	})

	AccountSyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthwatch_account_sync_failures_total",
		Help: "Total number of per-account pipeline failures (the run continues).",
	})

	EventsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthwatch_events_written_total",
		Help: "Total number of event summary records upserted.",
	})

	DetailsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthwatch_details_written_total",
		Help: "Total number of event detail records upserted.",
	})

	AffectedAccountsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthwatch_affected_accounts_written_total",
		Help: "Total number of affected account links upserted.",
	})

	AffectedEntitiesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthwatch_affected_entities_written_total",
		Help: "Total number of affected entity records upserted.",
	})

	ExpiredRecordsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthwatch_expired_records_deleted_total",
		Help: "Total number of records removed by the retention sweep.",
	})

	SyncRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "healthwatch_sync_run_duration_seconds",
		Help:    "End-to-end duration of a synchronization run.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
	})
)
