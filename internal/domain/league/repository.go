package league

import "context"

// Repository describes mini-league, membership, and standings persistence.
type Repository interface {
	List(ctx context.Context) ([]MiniLeague, error)
	GetByID(ctx context.Context, leagueID string) (MiniLeague, bool, error)
	ListMembers(ctx context.Context, leagueID string) ([]Member, error)
	ListAllMemberManagerIDs(ctx context.Context) ([]string, error)

	ReplaceStandings(ctx context.Context, leagueID string, gameweekID int, rows []Standing) error
	ListStandings(ctx context.Context, leagueID string, gameweekID int) ([]Standing, error)

	// ReplacePlayerWhitelist upserts the set of player ids appearing in at
	// least one member's picks for the gameweek.
	ReplacePlayerWhitelist(ctx context.Context, leagueID string, gameweekID int, playerIDs []string) error
}
