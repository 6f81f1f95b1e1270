package player

import "context"

// Repository describes player persistence needs from use cases.
type Repository interface {
	Upsert(ctx context.Context, items []Player) error
	List(ctx context.Context) ([]Player, error)
	GetByIDs(ctx context.Context, playerIDs []string) ([]Player, error)
	SyncOwnership(ctx context.Context, items []Player) error
}
