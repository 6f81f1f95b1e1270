package baseline

import "context"

// Repository describes matchday-baseline persistence.
type Repository interface {
	// UpsertIfAbsent writes each row only when no row yet exists for its
	// (manager, gameweek, sequence) key, preserving the idempotency
	// guarantee baseline capture requires.
	UpsertIfAbsent(ctx context.Context, items []MatchdayBaseline) error
	NextSequence(ctx context.Context, gameweekID int) (int, error)
	ListByGameweek(ctx context.Context, gameweekID int) ([]MatchdayBaseline, error)
}
