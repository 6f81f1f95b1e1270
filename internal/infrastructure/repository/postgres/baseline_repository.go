package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-league/internal/domain/baseline"
	qb "github.com/riskibarqy/fantasy-league/internal/platform/querybuilder"
)

type BaselineRepository struct {
	db *sqlx.DB
}

func NewBaselineRepository(db *sqlx.DB) *BaselineRepository {
	return &BaselineRepository{db: db}
}

// UpsertIfAbsent relies on ON CONFLICT DO NOTHING to keep the first-written
// baseline row for a (manager, gameweek, sequence) key, never overwriting it.
func (r *BaselineRepository) UpsertIfAbsent(ctx context.Context, items []baseline.MatchdayBaseline) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert baselines: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := qb.InsertModel("matchday_baselines", matchdayBaselineTableModel{
			ManagerID:            item.ManagerID,
			GameweekID:           item.GameweekID,
			MatchdaySequence:     item.MatchdaySequence,
			MatchdayDate:         item.MatchdayDate,
			FirstKickoffAt:       item.FirstKickoffAt,
			OverallRankBaseline:  item.OverallRankBaseline,
			GameweekRankBaseline: item.GameweekRankBaseline,
		}, `ON CONFLICT (manager_id, gameweek_id, matchday_sequence) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("build insert baseline query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert baseline manager=%s gameweek=%d sequence=%d: %w", item.ManagerID, item.GameweekID, item.MatchdaySequence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert baselines tx: %w", err)
	}
	return nil
}

func (r *BaselineRepository) NextSequence(ctx context.Context, gameweekID int) (int, error) {
	query, args, err := qb.Select("COALESCE(MAX(matchday_sequence), 0)").From("matchday_baselines").
		Where(qb.Eq("gameweek_id", gameweekID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build next sequence query: %w", err)
	}

	var maxSequence int
	if err := r.db.GetContext(ctx, &maxSequence, query, args...); err != nil {
		return 0, fmt.Errorf("get next baseline sequence gameweek=%d: %w", gameweekID, err)
	}
	return maxSequence + 1, nil
}

func (r *BaselineRepository) ListByGameweek(ctx context.Context, gameweekID int) ([]baseline.MatchdayBaseline, error) {
	query, args, err := qb.Select("*").From("matchday_baselines").
		Where(qb.Eq("gameweek_id", gameweekID)).
		OrderBy("matchday_sequence", "manager_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list baselines query: %w", err)
	}

	var rows []matchdayBaselineTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list baselines gameweek=%d: %w", gameweekID, err)
	}

	out := make([]baseline.MatchdayBaseline, 0, len(rows))
	for _, row := range rows {
		out = append(out, baseline.MatchdayBaseline{
			ManagerID:            row.ManagerID,
			GameweekID:           row.GameweekID,
			MatchdaySequence:     row.MatchdaySequence,
			MatchdayDate:         row.MatchdayDate,
			FirstKickoffAt:       row.FirstKickoffAt,
			OverallRankBaseline:  row.OverallRankBaseline,
			GameweekRankBaseline: row.GameweekRankBaseline,
		})
	}
	return out, nil
}
