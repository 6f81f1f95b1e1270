package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-league/internal/domain/league"
	qb "github.com/riskibarqy/fantasy-league/internal/platform/querybuilder"
)

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) List(ctx context.Context) ([]league.MiniLeague, error) {
	query, args, err := qb.Select("*").From("mini_leagues").OrderBy("id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select mini leagues query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select mini leagues: %w", err)
	}

	out := make([]league.MiniLeague, 0, len(rows))
	for _, row := range rows {
		out = append(out, league.MiniLeague{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.MiniLeague, bool, error) {
	query, args, err := qb.Select("*").From("mini_leagues").
		Where(qb.Eq("id", leagueID)).
		ToSQL()
	if err != nil {
		return league.MiniLeague{}, false, fmt.Errorf("build get mini league by id query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.MiniLeague{}, false, nil
		}
		return league.MiniLeague{}, false, fmt.Errorf("get mini league by id: %w", err)
	}
	return league.MiniLeague{ID: row.ID, Name: row.Name}, true, nil
}

func (r *LeagueRepository) ListMembers(ctx context.Context, leagueID string) ([]league.Member, error) {
	query, args, err := qb.Select("*").From("league_members").
		Where(qb.Eq("league_id", leagueID)).
		OrderBy("manager_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select league members query: %w", err)
	}

	var rows []leagueMemberTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select league members: %w", err)
	}

	out := make([]league.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, league.Member{LeagueID: row.LeagueID, ManagerID: row.ManagerID})
	}
	return out, nil
}

func (r *LeagueRepository) ListAllMemberManagerIDs(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("DISTINCT manager_id").From("league_members").
		OrderBy("manager_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select all member manager ids query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("select all member manager ids: %w", err)
	}
	return ids, nil
}

func (r *LeagueRepository) ReplaceStandings(ctx context.Context, leagueID string, gameweekID int, rows []league.Standing) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace standings: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM league_standings WHERE league_id = $1 AND gameweek_id = $2`, leagueID, gameweekID); err != nil {
		return fmt.Errorf("delete existing league standings: %w", err)
	}

	for _, row := range rows {
		query, args, err := qb.InsertModel("league_standings", leagueStandingTableModel{
			LeagueID:     leagueID,
			ManagerID:    row.ManagerID,
			GameweekID:   gameweekID,
			TotalPoints:  row.TotalPoints,
			Rank:         row.Rank,
			PreviousRank: row.PreviousRank,
			RankChange:   row.RankChange,
		}, `ON CONFLICT (league_id, manager_id, gameweek_id)
DO UPDATE SET
    total_points = EXCLUDED.total_points,
    rank = EXCLUDED.rank,
    previous_rank = EXCLUDED.previous_rank,
    rank_change = EXCLUDED.rank_change`)
		if err != nil {
			return fmt.Errorf("build insert league standing query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert league standing manager=%s: %w", row.ManagerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace standings tx: %w", err)
	}
	return nil
}

func (r *LeagueRepository) ListStandings(ctx context.Context, leagueID string, gameweekID int) ([]league.Standing, error) {
	query, args, err := qb.Select("*").From("league_standings").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("gameweek_id", gameweekID),
		).
		OrderBy("rank", "manager_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select league standings query: %w", err)
	}

	var rows []leagueStandingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select league standings: %w", err)
	}

	out := make([]league.Standing, 0, len(rows))
	for _, row := range rows {
		out = append(out, league.Standing{
			LeagueID:     row.LeagueID,
			ManagerID:    row.ManagerID,
			GameweekID:   row.GameweekID,
			TotalPoints:  row.TotalPoints,
			Rank:         row.Rank,
			PreviousRank: row.PreviousRank,
			RankChange:   row.RankChange,
		})
	}
	return out, nil
}

func (r *LeagueRepository) ReplacePlayerWhitelist(ctx context.Context, leagueID string, gameweekID int, playerIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace player whitelist: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM league_player_whitelist WHERE league_id = $1 AND gameweek_id = $2`, leagueID, gameweekID); err != nil {
		return fmt.Errorf("delete existing player whitelist: %w", err)
	}

	for _, playerID := range playerIDs {
		query, args, err := qb.InsertModel("league_player_whitelist", leagueWhitelistTableModel{
			LeagueID:   leagueID,
			GameweekID: gameweekID,
			PlayerID:   playerID,
		}, `ON CONFLICT (league_id, gameweek_id, player_id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("build insert player whitelist query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert player whitelist player=%s: %w", playerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace player whitelist tx: %w", err)
	}
	return nil
}
