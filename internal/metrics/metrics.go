// Package metrics exposes Prometheus counters for check-in and sweep activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckinsTotal counts check-in requests by outcome
	// (ok, validation_error, not_found, store_error).
	CheckinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_checkins_total",
		Help: "Check-in requests by outcome.",
	}, []string{"outcome"})

	// TimelocksOpenedTotal counts check-ins that opened a re-check window.
	TimelocksOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_timelocks_opened_total",
		Help: "Check-ins that opened a re-check timelock window.",
	})

	// TimelocksClearedTotal counts check-ins that cleared an open window.
	TimelocksClearedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_timelocks_cleared_total",
		Help: "Check-ins that cleared a re-check timelock window.",
	})

	// SweepProcessedTotal counts records auto-marked absent by the sweeper.
	SweepProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_sweep_processed_total",
		Help: "Records transitioned to absent by the expiry sweeper.",
	})

	// SweepFailedTotal counts per-record sweep failures.
	SweepFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_sweep_failed_total",
		Help: "Records the expiry sweeper failed to transition.",
	})

	// SweepRunsTotal counts sweep invocations.
	SweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_sweep_runs_total",
		Help: "Expiry sweep invocations.",
	})
)
