package playerstats

import "context"

// Repository describes per-player-per-gameweek stat persistence.
type Repository interface {
	Upsert(ctx context.Context, items []GameweekStats) error
	ListByGameweek(ctx context.Context, gameweekID int, playerIDs []string) ([]GameweekStats, error)
	ListByFixture(ctx context.Context, fixtureID string) ([]GameweekStats, error)
	ListProvisionalBonus(ctx context.Context, gameweekID int) ([]GameweekStats, error)
}
