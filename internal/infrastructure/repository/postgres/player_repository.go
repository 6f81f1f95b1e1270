package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-league/internal/domain/player"
	qb "github.com/riskibarqy/fantasy-league/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	query, args, err := qb.Select("*").From("players").OrderBy("id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapPlayerRow(row))
	}
	return out, nil
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []string) ([]player.Player, error) {
	if len(playerIDs) == 0 {
		return []player.Player{}, nil
	}

	query, args, err := qb.Select("*").From("players").
		Where(qb.In("id", stringSliceToAny(playerIDs))).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by ids query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players by ids: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapPlayerRow(row))
	}
	return out, nil
}

func (r *PlayerRepository) Upsert(ctx context.Context, items []player.Player) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert players: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := qb.InsertModel("players", playerTableModel{
			ID:                item.ID,
			TeamID:            item.TeamID,
			Position:          string(item.Position),
			WebName:           item.WebName,
			CostTenths:        item.CostTenths,
			SelectedByPercent: item.SelectedByPercent,
		}, `ON CONFLICT (id)
DO UPDATE SET
    team_id = EXCLUDED.team_id,
    position = EXCLUDED.position,
    web_name = EXCLUDED.web_name,
    cost_tenths = EXCLUDED.cost_tenths,
    selected_by_percent = EXCLUDED.selected_by_percent`)
		if err != nil {
			return fmt.Errorf("build upsert player query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player id=%s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert players tx: %w", err)
	}
	return nil
}

// SyncOwnership writes only the cost_tenths and selected_by_percent
// columns, leaving the rest of each row untouched, matching the
// ownership-sync refresh's narrower write scope.
func (r *PlayerRepository) SyncOwnership(ctx context.Context, items []player.Player) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx sync player ownership: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := qb.Update("players").
			Set("cost_tenths", item.CostTenths).
			Set("selected_by_percent", item.SelectedByPercent).
			Where(qb.Eq("id", item.ID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build sync player ownership query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("sync player ownership id=%s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync player ownership tx: %w", err)
	}
	return nil
}

func stringSliceToAny(items []string) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

func mapPlayerRow(row playerTableModel) player.Player {
	return player.Player{
		ID:                row.ID,
		TeamID:            row.TeamID,
		Position:          player.Position(row.Position),
		WebName:           row.WebName,
		CostTenths:        row.CostTenths,
		SelectedByPercent: row.SelectedByPercent,
	}
}
