package aggregate

import "context"

// Repository describes the abstract materialized-aggregate refresh
// operations the orchestrator's live and full refresh passes call. It has
// no implementation here — a concrete store wires this to whatever
// aggregate tables it maintains.
type Repository interface {
	RefreshAll(ctx context.Context) error
	RefreshLiveSubset(ctx context.Context) error
}
