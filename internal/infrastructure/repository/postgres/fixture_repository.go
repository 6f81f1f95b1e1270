package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-league/internal/domain/fixture"
	qb "github.com/riskibarqy/fantasy-league/internal/platform/querybuilder"
)

type FixtureRepository struct {
	db *sqlx.DB
}

func NewFixtureRepository(db *sqlx.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func (r *FixtureRepository) ListByGameweek(ctx context.Context, gameweekID int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(qb.Eq("gameweek_id", gameweekID)).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select fixtures by gameweek query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select fixtures by gameweek: %w", err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapFixtureRow(row))
	}
	return out, nil
}

func (r *FixtureRepository) GetFirstKickoff(ctx context.Context, gameweekID int) (time.Time, bool, error) {
	query, args, err := qb.Select("kickoff_at").From("fixtures").
		Where(qb.Eq("gameweek_id", gameweekID)).
		OrderBy("kickoff_at").
		Limit(1).
		ToSQL()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build get first kickoff query: %w", err)
	}

	var kickoffAt time.Time
	if err := r.db.GetContext(ctx, &kickoffAt, query, args...); err != nil {
		if isNotFound(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("get first kickoff: %w", err)
	}
	return kickoffAt, true, nil
}

func (r *FixtureRepository) GetNextKickoff(ctx context.Context, gameweekID int) (time.Time, bool, error) {
	query, args, err := qb.Select("kickoff_at").From("fixtures").
		Where(
			qb.Eq("gameweek_id", gameweekID),
			qb.Eq("started", false),
		).
		OrderBy("kickoff_at").
		Limit(1).
		ToSQL()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build get next kickoff query: %w", err)
	}

	var kickoffAt time.Time
	if err := r.db.GetContext(ctx, &kickoffAt, query, args...); err != nil {
		if isNotFound(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("get next kickoff: %w", err)
	}
	return kickoffAt, true, nil
}

func (r *FixtureRepository) UpdateScoreboard(ctx context.Context, fixtureID string, homeScore, awayScore *int, minutes int) error {
	query, args, err := qb.Update("fixtures").
		Set("home_score", homeScore).
		Set("away_score", awayScore).
		Set("minutes", minutes).
		Set("started", true).
		SetExpr("finished_provisional", "finished_provisional OR ?", minutes >= 90).
		Where(qb.Eq("id", fixtureID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update fixture scoreboard query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update fixture scoreboard id=%s: %w", fixtureID, err)
	}
	return nil
}

func (r *FixtureRepository) Upsert(ctx context.Context, items []fixture.Fixture) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert fixtures: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := qb.InsertModel("fixtures", fixtureTableModel{
			ID:                  item.ID,
			GameweekID:          item.GameweekID,
			HomeTeamID:          item.HomeTeamID,
			AwayTeamID:          item.AwayTeamID,
			KickoffAt:           item.KickoffAt,
			Started:             item.Started,
			FinishedProvisional: item.FinishedProvisional,
			Finished:            item.Finished,
			Minutes:             item.Minutes,
			HomeScore:           item.HomeScore,
			AwayScore:           item.AwayScore,
		}, `ON CONFLICT (id)
DO UPDATE SET
    gameweek_id = EXCLUDED.gameweek_id,
    home_team_id = EXCLUDED.home_team_id,
    away_team_id = EXCLUDED.away_team_id,
    kickoff_at = EXCLUDED.kickoff_at,
    started = EXCLUDED.started,
    finished_provisional = EXCLUDED.finished_provisional,
    finished = EXCLUDED.finished`)
		if err != nil {
			return fmt.Errorf("build upsert fixture query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert fixture id=%s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert fixtures tx: %w", err)
	}
	return nil
}

func mapFixtureRow(row fixtureTableModel) fixture.Fixture {
	return fixture.Fixture{
		ID:                  row.ID,
		GameweekID:          row.GameweekID,
		HomeTeamID:          row.HomeTeamID,
		AwayTeamID:          row.AwayTeamID,
		KickoffAt:           row.KickoffAt,
		Started:             row.Started,
		FinishedProvisional: row.FinishedProvisional,
		Finished:            row.Finished,
		Minutes:             row.Minutes,
		HomeScore:           row.HomeScore,
		AwayScore:           row.AwayScore,
	}
}
