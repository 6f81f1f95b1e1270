package gameweek

import "context"

// Repository describes gameweek persistence needs from use cases.
type Repository interface {
	Upsert(ctx context.Context, items []Gameweek) error
	GetCurrent(ctx context.Context) (Gameweek, bool, error)
	GetByID(ctx context.Context, id int) (Gameweek, bool, error)
	List(ctx context.Context) ([]Gameweek, error)
	MarkRanksFinalized(ctx context.Context, id int) error
}
