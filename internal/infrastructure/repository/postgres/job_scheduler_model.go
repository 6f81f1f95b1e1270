package postgres

import "time"

type refreshEventTableModel struct {
	OccurredAt time.Time `db:"occurred_at"`
	Path       string    `db:"path"`
	TraceID    string    `db:"trace_id"`
	SpanID     string    `db:"span_id"`
}

type deadlineBatchRunTableModel struct {
	ID             string     `db:"id"`
	GameweekID     int        `db:"gameweek_id"`
	StartedAt      time.Time  `db:"started_at"`
	FinishedAt     *time.Time `db:"finished_at"`
	Success        *bool      `db:"success"`
	FailureReason  string     `db:"failure_reason"`
	PhaseBreakdown string     `db:"phase_breakdown"`
}
