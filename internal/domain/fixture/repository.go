package fixture

import (
	"context"
	"time"
)

// Repository describes fixture persistence needs from use cases. Score and
// minutes writes are routed through UpdateScoreboard rather than Upsert so
// the store implementation can enforce the monotone-minutes invariant close
// to the write path.
type Repository interface {
	Upsert(ctx context.Context, items []Fixture) error
	ListByGameweek(ctx context.Context, gameweekID int) ([]Fixture, error)
	GetFirstKickoff(ctx context.Context, gameweekID int) (time.Time, bool, error)
	GetNextKickoff(ctx context.Context, gameweekID int) (time.Time, bool, error)
	UpdateScoreboard(ctx context.Context, fixtureID string, homeScore, awayScore *int, minutes int) error
}
