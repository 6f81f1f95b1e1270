package manager

import "context"

// Repository describes manager, pick, transfer, and history persistence.
type Repository interface {
	GetTrackedManagerIDs(ctx context.Context) ([]string, error)
	UpsertManagers(ctx context.Context, items []Manager) error

	UpsertPicks(ctx context.Context, managerID string, gameweekID int, picks []Pick) error
	GetPicks(ctx context.Context, managerID string, gameweekID int) ([]Pick, error)
	UpdateAutoSubFlags(ctx context.Context, managerID string, gameweekID int, picks []Pick) error

	UpsertTransfers(ctx context.Context, managerID string, gameweekID int, items []Transfer) error
	ListTransfers(ctx context.Context, managerID string, gameweekID int) ([]Transfer, error)

	GetHistory(ctx context.Context, managerID string, gameweekID int) (GameweekHistory, bool, error)
	GetPreviousHistory(ctx context.Context, managerID string, gameweekID int) (GameweekHistory, bool, error)
	UpsertHistory(ctx context.Context, items []GameweekHistory) error
	// UpsertHistoryPreservingBaseline writes gameweek_points/total_points and
	// related live-derived columns without touching baseline_total_points,
	// previous_overall_rank, or previous_mini_league_rank.
	UpsertHistoryPreservingBaseline(ctx context.Context, items []GameweekHistory) error
}
