package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-league/internal/domain/gameweek"
	qb "github.com/riskibarqy/fantasy-league/internal/platform/querybuilder"
)

type GameweekRepository struct {
	db *sqlx.DB
}

func NewGameweekRepository(db *sqlx.DB) *GameweekRepository {
	return &GameweekRepository{db: db}
}

func (r *GameweekRepository) Upsert(ctx context.Context, items []gameweek.Gameweek) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert gameweeks: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := qb.InsertModel("gameweeks", gameweekTableModel{
			ID:             item.ID,
			Name:           item.Name,
			DeadlineAt:     item.DeadlineAt,
			ReleaseAt:      item.ReleaseAt,
			IsCurrent:      item.IsCurrent,
			IsNext:         item.IsNext,
			IsPrevious:     item.IsPrevious,
			Finished:       item.Finished,
			DataChecked:    item.DataChecked,
			RanksFinalized: item.RanksFinalized,
		}, `ON CONFLICT (id)
DO UPDATE SET
    name = EXCLUDED.name,
    deadline_at = EXCLUDED.deadline_at,
    release_at = EXCLUDED.release_at,
    is_current = EXCLUDED.is_current,
    is_next = EXCLUDED.is_next,
    is_previous = EXCLUDED.is_previous,
    finished = EXCLUDED.finished,
    data_checked = EXCLUDED.data_checked`)
		if err != nil {
			return fmt.Errorf("build upsert gameweek query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert gameweek id=%d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert gameweeks tx: %w", err)
	}
	return nil
}

func (r *GameweekRepository) GetCurrent(ctx context.Context) (gameweek.Gameweek, bool, error) {
	query, args, err := qb.Select("*").From("gameweeks").
		Where(qb.Eq("is_current", true)).
		Limit(1).
		ToSQL()
	if err != nil {
		return gameweek.Gameweek{}, false, fmt.Errorf("build get current gameweek query: %w", err)
	}

	var row gameweekTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return gameweek.Gameweek{}, false, nil
		}
		return gameweek.Gameweek{}, false, fmt.Errorf("get current gameweek: %w", err)
	}
	return mapGameweekRow(row), true, nil
}

func (r *GameweekRepository) GetByID(ctx context.Context, id int) (gameweek.Gameweek, bool, error) {
	query, args, err := qb.Select("*").From("gameweeks").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return gameweek.Gameweek{}, false, fmt.Errorf("build get gameweek by id query: %w", err)
	}

	var row gameweekTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return gameweek.Gameweek{}, false, nil
		}
		return gameweek.Gameweek{}, false, fmt.Errorf("get gameweek by id=%d: %w", id, err)
	}
	return mapGameweekRow(row), true, nil
}

func (r *GameweekRepository) List(ctx context.Context) ([]gameweek.Gameweek, error) {
	query, args, err := qb.Select("*").From("gameweeks").OrderBy("id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list gameweeks query: %w", err)
	}

	var rows []gameweekTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list gameweeks: %w", err)
	}

	out := make([]gameweek.Gameweek, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapGameweekRow(row))
	}
	return out, nil
}

func (r *GameweekRepository) MarkRanksFinalized(ctx context.Context, id int) error {
	query, args, err := qb.Update("gameweeks").
		Set("ranks_finalized", true).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark ranks finalized query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark ranks finalized id=%d: %w", id, err)
	}
	return nil
}

func mapGameweekRow(row gameweekTableModel) gameweek.Gameweek {
	return gameweek.Gameweek{
		ID:             row.ID,
		Name:           row.Name,
		DeadlineAt:     row.DeadlineAt,
		ReleaseAt:      row.ReleaseAt,
		IsCurrent:      row.IsCurrent,
		IsNext:         row.IsNext,
		IsPrevious:     row.IsPrevious,
		Finished:       row.Finished,
		DataChecked:    row.DataChecked,
		RanksFinalized: row.RanksFinalized,
	}
}
