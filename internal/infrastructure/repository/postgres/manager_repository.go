package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-league/internal/domain/manager"
	qb "github.com/riskibarqy/fantasy-league/internal/platform/querybuilder"
)

type ManagerRepository struct {
	db *sqlx.DB
}

func NewManagerRepository(db *sqlx.DB) *ManagerRepository {
	return &ManagerRepository{db: db}
}

func (r *ManagerRepository) GetTrackedManagerIDs(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("id").From("managers").OrderBy("id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select tracked manager ids query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("select tracked manager ids: %w", err)
	}
	return ids, nil
}

func (r *ManagerRepository) UpsertManagers(ctx context.Context, items []manager.Manager) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert managers: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := qb.InsertModel("managers", managerTableModel{
			ID:        item.ID,
			FirstName: item.FirstName,
			LastName:  item.LastName,
			TeamName:  item.TeamName,
		}, `ON CONFLICT (id)
DO UPDATE SET
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    team_name = EXCLUDED.team_name`)
		if err != nil {
			return fmt.Errorf("build upsert manager query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert manager id=%s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert managers tx: %w", err)
	}
	return nil
}

func (r *ManagerRepository) UpsertPicks(ctx context.Context, managerID string, gameweekID int, picks []manager.Pick) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert picks: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM picks WHERE manager_id = $1 AND gameweek_id = $2`, managerID, gameweekID); err != nil {
		return fmt.Errorf("delete existing picks: %w", err)
	}

	for _, pick := range picks {
		query, args, err := qb.InsertModel("picks", mapPickToRow(managerID, gameweekID, pick), "")
		if err != nil {
			return fmt.Errorf("build insert pick query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert pick manager=%s position=%d: %w", managerID, pick.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert picks tx: %w", err)
	}
	return nil
}

func (r *ManagerRepository) GetPicks(ctx context.Context, managerID string, gameweekID int) ([]manager.Pick, error) {
	query, args, err := qb.Select("*").From("picks").
		Where(
			qb.Eq("manager_id", managerID),
			qb.Eq("gameweek_id", gameweekID),
		).
		OrderBy("position").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select picks query: %w", err)
	}

	var rows []pickTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select picks manager=%s gameweek=%d: %w", managerID, gameweekID, err)
	}

	out := make([]manager.Pick, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapPickRow(row))
	}
	return out, nil
}

func (r *ManagerRepository) UpdateAutoSubFlags(ctx context.Context, managerID string, gameweekID int, picks []manager.Pick) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx update auto sub flags: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, pick := range picks {
		query, args, err := qb.Update("picks").
			Set("was_auto_subbed_in", pick.WasAutoSubbedIn).
			Set("was_auto_subbed_out", pick.WasAutoSubbedOut).
			Set("auto_sub_replaced_player_id", pick.AutoSubReplacedPlayerID).
			Set("multiplier", pick.Multiplier).
			Where(
				qb.Eq("manager_id", managerID),
				qb.Eq("gameweek_id", gameweekID),
				qb.Eq("position", pick.Position),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update auto sub flags query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update auto sub flags manager=%s position=%d: %w", managerID, pick.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update auto sub flags tx: %w", err)
	}
	return nil
}

func (r *ManagerRepository) UpsertTransfers(ctx context.Context, managerID string, gameweekID int, items []manager.Transfer) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert transfers: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transfers WHERE manager_id = $1 AND gameweek_id = $2`, managerID, gameweekID); err != nil {
		return fmt.Errorf("delete existing transfers: %w", err)
	}

	for _, item := range items {
		query, args, err := qb.InsertModel("transfers", transferTableModel{
			ManagerID:            managerID,
			GameweekID:           gameweekID,
			PlayerInID:           item.PlayerInID,
			PlayerOutID:          item.PlayerOutID,
			PriceInTenths:        item.PriceInTenths,
			PriceOutTenths:       item.PriceOutTenths,
			NetPriceChangeTenths: item.NetPriceChangeTenths,
			TransferAt:           item.TransferAt,
		}, "")
		if err != nil {
			return fmt.Errorf("build insert transfer query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert transfer manager=%s: %w", managerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert transfers tx: %w", err)
	}
	return nil
}

func (r *ManagerRepository) ListTransfers(ctx context.Context, managerID string, gameweekID int) ([]manager.Transfer, error) {
	query, args, err := qb.Select("*").From("transfers").
		Where(
			qb.Eq("manager_id", managerID),
			qb.Eq("gameweek_id", gameweekID),
		).
		OrderBy("transfer_at").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select transfers query: %w", err)
	}

	var rows []transferTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select transfers manager=%s gameweek=%d: %w", managerID, gameweekID, err)
	}

	out := make([]manager.Transfer, 0, len(rows))
	for _, row := range rows {
		out = append(out, manager.Transfer{
			ManagerID:            row.ManagerID,
			GameweekID:           row.GameweekID,
			PlayerInID:           row.PlayerInID,
			PlayerOutID:          row.PlayerOutID,
			PriceInTenths:        row.PriceInTenths,
			PriceOutTenths:       row.PriceOutTenths,
			NetPriceChangeTenths: row.NetPriceChangeTenths,
			TransferAt:           row.TransferAt,
		})
	}
	return out, nil
}

func (r *ManagerRepository) GetHistory(ctx context.Context, managerID string, gameweekID int) (manager.GameweekHistory, bool, error) {
	return r.getHistory(ctx, managerID, gameweekID)
}

func (r *ManagerRepository) GetPreviousHistory(ctx context.Context, managerID string, gameweekID int) (manager.GameweekHistory, bool, error) {
	return r.getHistory(ctx, managerID, gameweekID-1)
}

func (r *ManagerRepository) getHistory(ctx context.Context, managerID string, gameweekID int) (manager.GameweekHistory, bool, error) {
	query, args, err := qb.Select("*").From("manager_gameweek_history").
		Where(
			qb.Eq("manager_id", managerID),
			qb.Eq("gameweek_id", gameweekID),
		).
		ToSQL()
	if err != nil {
		return manager.GameweekHistory{}, false, fmt.Errorf("build select manager history query: %w", err)
	}

	var row gameweekHistoryTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return manager.GameweekHistory{}, false, nil
		}
		return manager.GameweekHistory{}, false, fmt.Errorf("get manager history manager=%s gameweek=%d: %w", managerID, gameweekID, err)
	}
	return mapHistoryRow(row), true, nil
}

func (r *ManagerRepository) UpsertHistory(ctx context.Context, items []manager.GameweekHistory) error {
	return r.upsertHistory(ctx, items, historyUpsertFullSuffix)
}

func (r *ManagerRepository) UpsertHistoryPreservingBaseline(ctx context.Context, items []manager.GameweekHistory) error {
	return r.upsertHistory(ctx, items, historyUpsertPreservingBaselineSuffix)
}

func (r *ManagerRepository) upsertHistory(ctx context.Context, items []manager.GameweekHistory, suffix string) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert manager history: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		query, args, err := qb.InsertModel("manager_gameweek_history", mapHistoryToRow(item), suffix)
		if err != nil {
			return fmt.Errorf("build upsert manager history query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert manager history manager=%s gameweek=%d: %w", item.ManagerID, item.GameweekID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert manager history tx: %w", err)
	}
	return nil
}

const historyUpsertFullSuffix = `ON CONFLICT (manager_id, gameweek_id)
DO UPDATE SET
    gameweek_points = EXCLUDED.gameweek_points,
    transfer_cost = EXCLUDED.transfer_cost,
    total_points = EXCLUDED.total_points,
    overall_rank = EXCLUDED.overall_rank,
    previous_overall_rank = EXCLUDED.previous_overall_rank,
    overall_rank_change = EXCLUDED.overall_rank_change,
    gameweek_rank = EXCLUDED.gameweek_rank,
    mini_league_rank = EXCLUDED.mini_league_rank,
    previous_mini_league_rank = EXCLUDED.previous_mini_league_rank,
    mini_league_rank_change = EXCLUDED.mini_league_rank_change,
    team_value_tenths = EXCLUDED.team_value_tenths,
    bank_tenths = EXCLUDED.bank_tenths,
    active_chip = EXCLUDED.active_chip,
    transfers_made = EXCLUDED.transfers_made,
    baseline_total_points = EXCLUDED.baseline_total_points`

// historyUpsertPreservingBaselineSuffix never touches baseline_total_points,
// previous_overall_rank, or previous_mini_league_rank on conflict: those
// columns are write-once, owned by baseline capture (manager.Repository doc).
const historyUpsertPreservingBaselineSuffix = `ON CONFLICT (manager_id, gameweek_id)
DO UPDATE SET
    gameweek_points = EXCLUDED.gameweek_points,
    transfer_cost = EXCLUDED.transfer_cost,
    total_points = EXCLUDED.total_points,
    overall_rank = EXCLUDED.overall_rank,
    overall_rank_change = EXCLUDED.overall_rank_change,
    gameweek_rank = EXCLUDED.gameweek_rank,
    mini_league_rank = EXCLUDED.mini_league_rank,
    mini_league_rank_change = EXCLUDED.mini_league_rank_change,
    team_value_tenths = EXCLUDED.team_value_tenths,
    bank_tenths = EXCLUDED.bank_tenths,
    active_chip = EXCLUDED.active_chip,
    transfers_made = EXCLUDED.transfers_made`

func mapPickToRow(managerID string, gameweekID int, pick manager.Pick) pickTableModel {
	return pickTableModel{
		ManagerID:               managerID,
		GameweekID:              gameweekID,
		Position:                pick.Position,
		PlayerID:                pick.PlayerID,
		IsCaptain:               pick.IsCaptain,
		IsVice:                  pick.IsVice,
		Multiplier:              pick.Multiplier,
		WasAutoSubbedIn:         pick.WasAutoSubbedIn,
		WasAutoSubbedOut:        pick.WasAutoSubbedOut,
		AutoSubReplacedPlayerID: pick.AutoSubReplacedPlayerID,
	}
}

func mapPickRow(row pickTableModel) manager.Pick {
	return manager.Pick{
		ManagerID:               row.ManagerID,
		GameweekID:              row.GameweekID,
		Position:                row.Position,
		PlayerID:                row.PlayerID,
		IsCaptain:               row.IsCaptain,
		IsVice:                  row.IsVice,
		Multiplier:              row.Multiplier,
		WasAutoSubbedIn:         row.WasAutoSubbedIn,
		WasAutoSubbedOut:        row.WasAutoSubbedOut,
		AutoSubReplacedPlayerID: row.AutoSubReplacedPlayerID,
	}
}

func mapHistoryToRow(h manager.GameweekHistory) gameweekHistoryTableModel {
	return gameweekHistoryTableModel{
		ManagerID:              h.ManagerID,
		GameweekID:             h.GameweekID,
		GameweekPoints:         h.GameweekPoints,
		TransferCost:           h.TransferCost,
		TotalPoints:            h.TotalPoints,
		OverallRank:            h.OverallRank,
		PreviousOverallRank:    h.PreviousOverallRank,
		OverallRankChange:      h.OverallRankChange,
		GameweekRank:           h.GameweekRank,
		MiniLeagueRank:         h.MiniLeagueRank,
		PreviousMiniLeagueRank: h.PreviousMiniLeagueRank,
		MiniLeagueRankChange:   h.MiniLeagueRankChange,
		TeamValueTenths:        h.TeamValueTenths,
		BankTenths:             h.BankTenths,
		ActiveChip:             string(h.ActiveChip),
		TransfersMade:          h.TransfersMade,
		BaselineTotalPoints:    h.BaselineTotalPoints,
	}
}

func mapHistoryRow(row gameweekHistoryTableModel) manager.GameweekHistory {
	return manager.GameweekHistory{
		ManagerID:              row.ManagerID,
		GameweekID:             row.GameweekID,
		GameweekPoints:         row.GameweekPoints,
		TransferCost:           row.TransferCost,
		TotalPoints:            row.TotalPoints,
		OverallRank:            row.OverallRank,
		PreviousOverallRank:    row.PreviousOverallRank,
		OverallRankChange:      row.OverallRankChange,
		GameweekRank:           row.GameweekRank,
		MiniLeagueRank:         row.MiniLeagueRank,
		PreviousMiniLeagueRank: row.PreviousMiniLeagueRank,
		MiniLeagueRankChange:   row.MiniLeagueRankChange,
		TeamValueTenths:        row.TeamValueTenths,
		BankTenths:             row.BankTenths,
		ActiveChip:             manager.Chip(row.ActiveChip),
		TransfersMade:          row.TransfersMade,
		BaselineTotalPoints:    row.BaselineTotalPoints,
	}
}
