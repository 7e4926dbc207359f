package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики конвейера. Регистрируются в default registry,
// экспортируются через promhttp на каждом бинарнике.
var (
	// JobsStarted — количество начатых попыток jobs, по типу.
	JobsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrika",
		Name:      "jobs_started_total",
		Help:      "Started job attempts by job type.",
	}, []string{"type"})

	// JobsCompleted — количество завершённых jobs, по типу и исходу.
	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrika",
		Name:      "jobs_completed_total",
		Help:      "Finished jobs by job type and outcome.",
	}, []string{"type", "outcome"})

	// JobsParked — количество jobs, исчерпавших retry.
	JobsParked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrika",
		Name:      "jobs_parked_total",
		Help:      "Jobs parked as permanently failed.",
	}, []string{"type"})

	// StageDuration — длительность этапов конвейера, по capability и адаптеру.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fabrika",
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage duration by capability and adapter.",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800},
	}, []string{"capability", "adapter"})

	// StageFailures — падения этапов, по capability и виду ошибки.
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrika",
		Name:      "stage_failures_total",
		Help:      "Stage failures by capability and adapter error kind.",
	}, []string{"capability", "kind"})

	// RealtimeDeliveries — доставки realtime-событий, по исходу.
	RealtimeDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrika",
		Name:      "realtime_deliveries_total",
		Help:      "Realtime event deliveries by outcome (delivered, no_connection, send_error).",
	}, []string{"outcome"})

	// ScheduledJobs — количество jobs, созданных планировщиком за цикл.
	ScheduledJobs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fabrika",
		Name:      "scheduled_jobs_total",
		Help:      "Jobs enqueued by the autopilot scheduler.",
	})

	// SessionRestores — восстановления браузерных сессий, по исходу.
	SessionRestores = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrika",
		Name:      "session_restores_total",
		Help:      "Browser session restores by outcome (hit, miss, error).",
	}, []string{"outcome"})
)
