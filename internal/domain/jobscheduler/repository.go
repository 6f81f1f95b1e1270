package jobscheduler

import "context"

// Repository describes heartbeat and deadline-batch bookkeeping persistence.
type Repository interface {
	InsertRefreshEvent(ctx context.Context, event RefreshEvent) error

	InsertDeadlineBatchStart(ctx context.Context, gameweekID int) (string, error)
	UpdateDeadlineBatchFinish(ctx context.Context, id string, success bool, failureReason string, phases []BatchPhase) error
	HasSuccessfulDeadlineBatch(ctx context.Context, gameweekID int) (bool, error)
}
