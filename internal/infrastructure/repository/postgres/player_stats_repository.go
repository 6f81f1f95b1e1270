package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-league/internal/domain/playerstats"
	qb "github.com/riskibarqy/fantasy-league/internal/platform/querybuilder"
)

type playerGameweekStatsTableModel struct {
	PlayerID                 string  `db:"player_id"`
	GameweekID               int     `db:"gameweek_id"`
	FixtureID                string  `db:"fixture_id"`
	TeamID                   string  `db:"team_id"`
	OpponentTeamID           string  `db:"opponent_team_id"`
	WasHome                  bool    `db:"was_home"`
	Minutes                  int     `db:"minutes"`
	TotalPoints              int     `db:"total_points"`
	BPS                      int     `db:"bps"`
	Bonus                    int     `db:"bonus"`
	BonusStatus              string  `db:"bonus_status"`
	Goals                    int     `db:"goals"`
	Assists                  int     `db:"assists"`
	CleanSheets              int     `db:"clean_sheets"`
	Saves                    int     `db:"saves"`
	DefensiveContribution    int     `db:"defensive_contribution"`
	YellowCards              int     `db:"yellow_cards"`
	RedCards                 int     `db:"red_cards"`
	ExpectedGoals            float64 `db:"expected_goals"`
	ExpectedAssists          float64 `db:"expected_assists"`
	ExpectedGoalInvolvements float64 `db:"expected_goal_involvements"`
	ExpectedGoalsConceded    float64 `db:"expected_goals_conceded"`
	Influence                float64 `db:"influence"`
	Creativity               float64 `db:"creativity"`
	Threat                   float64 `db:"threat"`
	ICTIndex                 float64 `db:"ict_index"`
	MatchFinished            bool    `db:"match_finished"`
	MatchFinishedProvisional bool    `db:"match_finished_provisional"`
}

type PlayerStatsRepository struct {
	db *sqlx.DB
}

func NewPlayerStatsRepository(db *sqlx.DB) *PlayerStatsRepository {
	return &PlayerStatsRepository{db: db}
}

func (r *PlayerStatsRepository) Upsert(ctx context.Context, items []playerstats.GameweekStats) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert player gameweek stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := qb.InsertModel("player_gameweek_stats", mapStatsToRow(item), `ON CONFLICT (player_id, gameweek_id, fixture_id)
DO UPDATE SET
    team_id = EXCLUDED.team_id,
    opponent_team_id = EXCLUDED.opponent_team_id,
    was_home = EXCLUDED.was_home,
    minutes = EXCLUDED.minutes,
    total_points = EXCLUDED.total_points,
    bps = EXCLUDED.bps,
    bonus = EXCLUDED.bonus,
    bonus_status = EXCLUDED.bonus_status,
    goals = EXCLUDED.goals,
    assists = EXCLUDED.assists,
    clean_sheets = EXCLUDED.clean_sheets,
    saves = EXCLUDED.saves,
    defensive_contribution = EXCLUDED.defensive_contribution,
    yellow_cards = EXCLUDED.yellow_cards,
    red_cards = EXCLUDED.red_cards,
    expected_goals = EXCLUDED.expected_goals,
    expected_assists = EXCLUDED.expected_assists,
    expected_goal_involvements = EXCLUDED.expected_goal_involvements,
    expected_goals_conceded = EXCLUDED.expected_goals_conceded,
    influence = EXCLUDED.influence,
    creativity = EXCLUDED.creativity,
    threat = EXCLUDED.threat,
    ict_index = EXCLUDED.ict_index,
    match_finished = EXCLUDED.match_finished,
    match_finished_provisional = EXCLUDED.match_finished_provisional`)
		if err != nil {
			return fmt.Errorf("build upsert player gameweek stats query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player gameweek stats player=%s fixture=%s: %w", item.PlayerID, item.FixtureID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert player gameweek stats tx: %w", err)
	}
	return nil
}

func (r *PlayerStatsRepository) ListByGameweek(ctx context.Context, gameweekID int, playerIDs []string) ([]playerstats.GameweekStats, error) {
	conditions := []qb.Condition{qb.Eq("gameweek_id", gameweekID)}
	if len(playerIDs) > 0 {
		conditions = append(conditions, qb.In("player_id", stringSliceToAny(playerIDs)))
	}

	query, args, err := qb.Select("*").From("player_gameweek_stats").
		Where(conditions...).
		OrderBy("player_id", "fixture_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select player gameweek stats query: %w", err)
	}

	var rows []playerGameweekStatsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select player gameweek stats: %w", err)
	}
	return mapStatsRows(rows), nil
}

func (r *PlayerStatsRepository) ListByFixture(ctx context.Context, fixtureID string) ([]playerstats.GameweekStats, error) {
	query, args, err := qb.Select("*").From("player_gameweek_stats").
		Where(qb.Eq("fixture_id", fixtureID)).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select player stats by fixture query: %w", err)
	}

	var rows []playerGameweekStatsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select player stats by fixture: %w", err)
	}
	return mapStatsRows(rows), nil
}

func (r *PlayerStatsRepository) ListProvisionalBonus(ctx context.Context, gameweekID int) ([]playerstats.GameweekStats, error) {
	query, args, err := qb.Select("*").From("player_gameweek_stats").
		Where(
			qb.Eq("gameweek_id", gameweekID),
			qb.Eq("bonus_status", string(playerstats.BonusProvisional)),
		).
		OrderBy("fixture_id", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select provisional bonus stats query: %w", err)
	}

	var rows []playerGameweekStatsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select provisional bonus stats: %w", err)
	}
	return mapStatsRows(rows), nil
}

func mapStatsToRow(item playerstats.GameweekStats) playerGameweekStatsTableModel {
	return playerGameweekStatsTableModel{
		PlayerID:                 item.PlayerID,
		GameweekID:               item.GameweekID,
		FixtureID:                item.FixtureID,
		TeamID:                   item.TeamID,
		OpponentTeamID:           item.OpponentTeamID,
		WasHome:                  item.WasHome,
		Minutes:                  item.Minutes,
		TotalPoints:              item.TotalPoints,
		BPS:                      item.BPS,
		Bonus:                    item.Bonus,
		BonusStatus:              string(item.BonusStatus),
		Goals:                    item.Goals,
		Assists:                  item.Assists,
		CleanSheets:              item.CleanSheets,
		Saves:                    item.Saves,
		DefensiveContribution:    item.DefensiveContribution,
		YellowCards:              item.YellowCards,
		RedCards:                 item.RedCards,
		ExpectedGoals:            item.ExpectedGoals,
		ExpectedAssists:          item.ExpectedAssists,
		ExpectedGoalInvolvements: item.ExpectedGoalInvolvements,
		ExpectedGoalsConceded:    item.ExpectedGoalsConceded,
		Influence:                item.Influence,
		Creativity:               item.Creativity,
		Threat:                   item.Threat,
		ICTIndex:                 item.ICTIndex,
		MatchFinished:            item.MatchFinished,
		MatchFinishedProvisional: item.MatchFinishedProvisional,
	}
}

func mapStatsRows(rows []playerGameweekStatsTableModel) []playerstats.GameweekStats {
	out := make([]playerstats.GameweekStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerstats.GameweekStats{
			PlayerID:                 row.PlayerID,
			GameweekID:               row.GameweekID,
			FixtureID:                row.FixtureID,
			TeamID:                   row.TeamID,
			OpponentTeamID:           row.OpponentTeamID,
			WasHome:                  row.WasHome,
			Minutes:                  row.Minutes,
			TotalPoints:              row.TotalPoints,
			BPS:                      row.BPS,
			Bonus:                    row.Bonus,
			BonusStatus:              playerstats.BonusStatus(row.BonusStatus),
			Goals:                    row.Goals,
			Assists:                  row.Assists,
			CleanSheets:              row.CleanSheets,
			Saves:                    row.Saves,
			DefensiveContribution:    row.DefensiveContribution,
			YellowCards:              row.YellowCards,
			RedCards:                 row.RedCards,
			ExpectedGoals:            row.ExpectedGoals,
			ExpectedAssists:          row.ExpectedAssists,
			ExpectedGoalInvolvements: row.ExpectedGoalInvolvements,
			ExpectedGoalsConceded:    row.ExpectedGoalsConceded,
			Influence:                row.Influence,
			Creativity:               row.Creativity,
			Threat:                   row.Threat,
			ICTIndex:                 row.ICTIndex,
			MatchFinished:            row.MatchFinished,
			MatchFinishedProvisional: row.MatchFinishedProvisional,
		})
	}
	return out
}
