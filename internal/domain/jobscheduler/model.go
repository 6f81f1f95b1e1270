package jobscheduler

import "time"

// RefreshPath identifies which orchestrator loop produced a heartbeat.
type RefreshPath string

const (
	PathFast RefreshPath = "fast"
	PathSlow RefreshPath = "slow"
)

// RefreshEvent is an orchestrator heartbeat so readers can display
// staleness.
type RefreshEvent struct {
	OccurredAt time.Time
	Path       RefreshPath
	TraceID    string
	SpanID     string
}

// BatchPhase is one timed, recorded step of the deadline batch.
type BatchPhase struct {
	Name       string
	StartedAt  time.Time
	FinishedAt time.Time
	Success    bool
	Detail     string
}

// DeadlineBatchRun is the crash-safe record of one post-deadline batch
// execution, gating re-execution.
type DeadlineBatchRun struct {
	ID             string
	GameweekID     int
	StartedAt      time.Time
	FinishedAt     *time.Time
	Success        *bool
	FailureReason  string
	PhaseBreakdown []BatchPhase
}

func (r DeadlineBatchRun) IsSuccessful() bool {
	return r.Success != nil && *r.Success
}
