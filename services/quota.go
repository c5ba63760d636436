// backend/services/quota.go
package services

import (
	"time"
)

// QuotaInputs are the persisted usage state and configuration the scheduler
// sizes a run from. ApiCallsToday must already be zeroed by the caller when
// the wall-clock date has advanced past the state's last run date.
type QuotaInputs struct {
	DailyQuota        int
	ApiCallsToday     int
	RunsPerDay        int
	BufferPercent     float64
	CallsPerRoute     int
	MaxRoutesPerRun   int
	TotalActiveRoutes int
}

// BatchPlan is the scheduler's output. BatchSize == 0 signals "skip this
// run" rather than processing a partial batch.
type BatchPlan struct {
	RemainingCalls int
	RunsLeft       int
	UsableQuota    int
	SafeCalls      int
	BatchSize      int
}

// RunsRemaining derives how many scheduled runs are still ahead of the
// current hour, dividing the day into runsPerDay equal intervals. Always at
// least 1 so the division downstream can never deadlock a run.
func RunsRemaining(now time.Time, runsPerDay int) int {
	if runsPerDay < 1 {
		return 1
	}
	interval := 24.0 / float64(runsPerDay)
	completed := int(float64(now.Hour()) / interval)
	left := runsPerDay - completed
	if left < 1 {
		return 1
	}
	return left
}

// PlanBatch computes how many routes may safely be processed this run. A
// fixed buffer fraction of the remaining daily quota is held back to absorb
// estimation error; the rest is split across the runs still scheduled today
// and divided by the calls each route costs. The result is clamped to the
// per-run route cap and the catalog size; under-using quota is always
// preferred to risking a hard provider-side rejection.
func PlanBatch(now time.Time, in QuotaInputs) BatchPlan {
	plan := BatchPlan{}

	plan.RemainingCalls = in.DailyQuota - in.ApiCallsToday
	if plan.RemainingCalls < 0 {
		plan.RemainingCalls = 0
	}

	plan.RunsLeft = RunsRemaining(now, in.RunsPerDay)
	plan.UsableQuota = int(float64(plan.RemainingCalls) * (1 - in.BufferPercent))
	plan.SafeCalls = plan.UsableQuota / plan.RunsLeft

	callsPerRoute := in.CallsPerRoute
	if callsPerRoute < 1 {
		callsPerRoute = 1
	}
	batch := plan.SafeCalls / callsPerRoute

	if batch < 1 {
		// Insufficient quota for even one route; skip the run entirely.
		plan.BatchSize = 0
		return plan
	}

	if in.MaxRoutesPerRun > 0 && batch > in.MaxRoutesPerRun {
		batch = in.MaxRoutesPerRun
	}
	if batch > in.TotalActiveRoutes {
		batch = in.TotalActiveRoutes
	}
	plan.BatchSize = batch
	return plan
}
