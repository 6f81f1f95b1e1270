package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// materializedViews lists the read-model views standings/rank pages query
// directly, in dependency order (mini league standings depend on manager
// history, so history-derived views refresh first).
var materializedViews = []string{
	"manager_overall_rank_view",
	"mini_league_standing_view",
	"gameweek_top_scorers_view",
}

// liveMaterializedViews is the subset cheap enough to refresh on every fast
// loop tick while a gameweek is live.
var liveMaterializedViews = []string{
	"manager_overall_rank_view",
	"mini_league_standing_view",
}

// AggregateRepository refreshes the standings/rank materialized views the
// read side serves from, concurrently where Postgres allows it.
type AggregateRepository struct {
	db *sqlx.DB
}

func NewAggregateRepository(db *sqlx.DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

func (r *AggregateRepository) RefreshAll(ctx context.Context) error {
	return r.refresh(ctx, materializedViews)
}

func (r *AggregateRepository) RefreshLiveSubset(ctx context.Context) error {
	return r.refresh(ctx, liveMaterializedViews)
}

func (r *AggregateRepository) refresh(ctx context.Context, views []string) error {
	for _, view := range views {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s", view)); err != nil {
			return fmt.Errorf("refresh materialized view %s: %w", view, err)
		}
	}
	return nil
}
