package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-league/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/fantasy-league/internal/platform/querybuilder"
)

// JobSchedulerRepository persists orchestrator heartbeats and deadline
// batch runs so restarts can detect an in-flight or already-completed batch.
type JobSchedulerRepository struct {
	db *sqlx.DB
}

func NewJobSchedulerRepository(db *sqlx.DB) *JobSchedulerRepository {
	return &JobSchedulerRepository{db: db}
}

func (r *JobSchedulerRepository) InsertRefreshEvent(ctx context.Context, event jobscheduler.RefreshEvent) error {
	query, args, err := qb.InsertModel("refresh_events", refreshEventTableModel{
		OccurredAt: event.OccurredAt,
		Path:       string(event.Path),
		TraceID:    event.TraceID,
		SpanID:     event.SpanID,
	}, "")
	if err != nil {
		return fmt.Errorf("build insert refresh event query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert refresh event: %w", err)
	}
	return nil
}

func (r *JobSchedulerRepository) InsertDeadlineBatchStart(ctx context.Context, gameweekID int) (string, error) {
	id := uuid.NewString()

	query, args, err := qb.InsertInto("deadline_batch_runs").
		Columns("id", "gameweek_id", "started_at", "phase_breakdown").
		Values(id, gameweekID, time.Now().UTC(), "[]").
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("build insert deadline batch start query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert deadline batch start gameweek=%d: %w", gameweekID, err)
	}
	return id, nil
}

func (r *JobSchedulerRepository) UpdateDeadlineBatchFinish(ctx context.Context, id string, success bool, failureReason string, phases []jobscheduler.BatchPhase) error {
	phaseJSON, err := sonic.Marshal(phases)
	if err != nil {
		return fmt.Errorf("marshal deadline batch phase breakdown: %w", err)
	}

	query, args, err := qb.Update("deadline_batch_runs").
		Set("finished_at", time.Now().UTC()).
		Set("success", success).
		Set("failure_reason", failureReason).
		Set("phase_breakdown", string(phaseJSON)).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update deadline batch finish query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update deadline batch finish id=%s: %w", id, err)
	}
	return nil
}

func (r *JobSchedulerRepository) HasSuccessfulDeadlineBatch(ctx context.Context, gameweekID int) (bool, error) {
	query, args, err := qb.Select("count(*)").From("deadline_batch_runs").
		Where(
			qb.Eq("gameweek_id", gameweekID),
			qb.Eq("success", true),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build has successful deadline batch query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("count successful deadline batches gameweek=%d: %w", gameweekID, err)
	}
	return count > 0, nil
}
