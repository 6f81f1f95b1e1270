package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/fantasy-league/external/fplapi"
	"github.com/riskibarqy/fantasy-league/internal/domain/player"
	"github.com/riskibarqy/fantasy-league/internal/domain/playerstats"
	"github.com/riskibarqy/fantasy-league/internal/platform/logging"
)

// PlayerRefresherConfig holds the per-cycle fan-out knobs for player stat
// refreshes.
type PlayerRefresherConfig struct {
	BatchSize    int
	SleepBetween time.Duration
}

// PlayerRefresherService implements component C3.
type PlayerRefresherService struct {
	store  Store
	client *fplapi.Client
	cfg    PlayerRefresherConfig
	logger *logging.Logger
}

func NewPlayerRefresherService(store Store, client *fplapi.Client, cfg PlayerRefresherConfig, logger *logging.Logger) *PlayerRefresherService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PlayerRefresherService{store: store, client: client, cfg: cfg, logger: logger}
}

// RefreshPlayerStatsInput bundles RefreshPlayerStats' parameters.
type RefreshPlayerStatsInput struct {
	GameweekID            int
	PlayerIDs             []string
	LiveData              *fplapi.EventLive
	FixturesByFPLID       map[int]fixtureRef
	LiveOnly              bool
	ExpectLiveUnavailable bool
}

type fixtureRef struct {
	ID       string
	TeamID   string
	Opponent string
	WasHome  bool
	Finished bool
	FinishedProvisional bool
}

// RefreshPlayerStats writes one PlayerGameweekStats row per fixture a
// player participated in, deriving fields from the in-memory live payload
// when given, else falling back to a per-player element-summary fetch.
func (s *PlayerRefresherService) RefreshPlayerStats(ctx context.Context, in RefreshPlayerStatsInput) error {
	if in.LiveData != nil {
		return s.refreshFromLiveData(ctx, in)
	}
	return s.refreshFromElementSummary(ctx, in)
}

func (s *PlayerRefresherService) refreshFromLiveData(ctx context.Context, in RefreshPlayerStatsInput) error {
	byID := make(map[int]fplapi.EventLiveElementStats, len(in.LiveData.Elements))
	for _, el := range in.LiveData.Elements {
		byID[el.ID] = el.Stats
	}

	rows := make([]playerstats.GameweekStats, 0, len(in.PlayerIDs))
	existing, err := s.store.PlayerStats.ListByGameweek(ctx, in.GameweekID, in.PlayerIDs)
	if err != nil {
		return fmt.Errorf("list existing stats: %w", err)
	}
	existingByPlayer := make(map[string]playerstats.GameweekStats, len(existing))
	for _, e := range existing {
		existingByPlayer[e.PlayerID] = e
	}

	for _, playerID := range in.PlayerIDs {
		fplID, err := parsePlayerRefID(playerID)
		if err != nil {
			continue
		}
		stats, ok := byID[fplID]
		if !ok {
			continue
		}

		ref, hasFixture := in.FixturesByFPLID[fplID]
		row := buildGameweekStatsRow(in.GameweekID, playerID, ref, hasFixture, stats)

		if row.PreserveExpectedStats(in.LiveOnly) {
			if prev, ok := existingByPlayer[playerID]; ok {
				row.ExpectedGoals = prev.ExpectedGoals
				row.ExpectedAssists = prev.ExpectedAssists
				row.ExpectedGoalInvolvements = prev.ExpectedGoalInvolvements
				row.ExpectedGoalsConceded = prev.ExpectedGoalsConceded
				row.Influence = prev.Influence
				row.Creativity = prev.Creativity
				row.Threat = prev.Threat
				row.ICTIndex = prev.ICTIndex
			}
		}

		rows = append(rows, row)
	}

	return s.applyProvisionalBonusAndUpsert(ctx, rows)
}

func (s *PlayerRefresherService) refreshFromElementSummary(ctx context.Context, in RefreshPlayerStatsInput) error {
	if in.ExpectLiveUnavailable {
		s.logger.InfoContext(ctx, "player refresh falling back to element summary", "gameweek", in.GameweekID, "players", len(in.PlayerIDs))
	}

	work := func(ctx context.Context, playerID string) error {
		fplID, err := parsePlayerRefID(playerID)
		if err != nil {
			return nil
		}
		summary, err := s.client.GetElementSummary(ctx, fplID)
		if err != nil {
			s.logger.WarnContext(ctx, "element summary fetch failed", "player_id", playerID, "error", err)
			return nil
		}

		var rows []playerstats.GameweekStats
		for _, h := range summary.History {
			if h.Round != in.GameweekID {
				continue
			}
			ref := fixtureRef{
				ID:       fmt.Sprintf("%d", h.FixtureID),
				TeamID:   "",
				Opponent: fmt.Sprintf("%d", h.OpponentTeam),
				WasHome:  h.WasHome,
				Finished: true,
			}
			rows = append(rows, buildGameweekStatsRow(in.GameweekID, playerID, ref, true, h.EventLiveElementStats))
		}
		if err := s.applyProvisionalBonusAndUpsert(ctx, rows); err != nil {
			s.logger.WarnContext(ctx, "upsert player stats failed", "player_id", playerID, "error", err)
		}
		return nil
	}

	_, err := BatchFanOut(ctx, in.PlayerIDs, s.cfg.BatchSize, s.cfg.SleepBetween, func(ctx context.Context, playerID string) error {
		return work(ctx, playerID)
	})
	return err
}

func (s *PlayerRefresherService) applyProvisionalBonusAndUpsert(ctx context.Context, rows []playerstats.GameweekStats) error {
	if len(rows) == 0 {
		return nil
	}

	byFixture := make(map[string][]playerstats.GameweekStats)
	for _, r := range rows {
		byFixture[r.FixtureID] = append(byFixture[r.FixtureID], r)
	}

	for _, fixtureRows := range byFixture {
		provisional := make([]playerstats.GameweekStats, 0, len(fixtureRows))
		for _, r := range fixtureRows {
			if r.Bonus == 0 && r.BonusStatus == playerstats.BonusProvisional {
				provisional = append(provisional, r)
			}
		}
		if len(provisional) == 0 {
			continue
		}
		bonusByPlayer := SynthesizeProvisionalBonus(provisional)
		for i := range fixtureRows {
			if b, ok := bonusByPlayer[fixtureRows[i].PlayerID]; ok && fixtureRows[i].Bonus == 0 && fixtureRows[i].BonusStatus == playerstats.BonusProvisional {
				fixtureRows[i].Bonus = b
			}
		}
	}

	return s.store.PlayerStats.Upsert(ctx, rows)
}

func buildGameweekStatsRow(gameweekID int, playerID string, ref fixtureRef, hasFixture bool, stats fplapi.EventLiveElementStats) playerstats.GameweekStats {
	bonusStatus := playerstats.BonusProvisional
	finished := hasFixture && ref.Finished
	finishedProvisional := hasFixture && (ref.FinishedProvisional || ref.Finished)
	if finished {
		bonusStatus = playerstats.BonusConfirmed
	}

	return playerstats.GameweekStats{
		PlayerID:                 playerID,
		GameweekID:               gameweekID,
		FixtureID:                ref.ID,
		TeamID:                   ref.TeamID,
		OpponentTeamID:           ref.Opponent,
		WasHome:                  ref.WasHome,
		Minutes:                  stats.Minutes,
		TotalPoints:              stats.TotalPoints,
		BPS:                      stats.BPS,
		Bonus:                    stats.Bonus,
		BonusStatus:              bonusStatus,
		Goals:                    stats.GoalsScored,
		Assists:                  stats.Assists,
		CleanSheets:              stats.CleanSheets,
		Saves:                    stats.Saves,
		DefensiveContribution:    stats.DefensiveContribution,
		YellowCards:              stats.YellowCards,
		RedCards:                 stats.RedCards,
		ExpectedGoals:            parseFloat(stats.ExpectedGoals),
		ExpectedAssists:          parseFloat(stats.ExpectedAssists),
		ExpectedGoalInvolvements: parseFloat(stats.ExpectedGoalInvolvements),
		ExpectedGoalsConceded:    parseFloat(stats.ExpectedGoalsConceded),
		Influence:                parseFloat(stats.Influence),
		Creativity:               parseFloat(stats.Creativity),
		Threat:                   parseFloat(stats.Threat),
		ICTIndex:                 parseFloat(stats.ICTIndex),
		MatchFinished:            finished,
		MatchFinishedProvisional: finishedProvisional,
	}
}

// SyncPlayersOwnershipFromBootstrap refreshes cost_tenths and
// selected_by_percent from the bootstrap snapshot.
func (s *PlayerRefresherService) SyncPlayersOwnershipFromBootstrap(ctx context.Context, bootstrap fplapi.Bootstrap) error {
	items := make([]player.Player, 0, len(bootstrap.Elements))
	for _, el := range bootstrap.Elements {
		items = append(items, player.Player{
			ID:                fmt.Sprintf("%d", el.ID),
			TeamID:            fmt.Sprintf("%d", el.TeamID),
			Position:          elementTypeToPosition(el.ElementType),
			WebName:           el.WebName,
			CostTenths:        el.NowCost,
			SelectedByPercent: parseFloat(el.SelectedByPercent),
		})
	}
	return s.store.Player.SyncOwnership(ctx, items)
}

// SyncPlayerPricesFromBootstrap syncs the price series. The
// current-gameweek price point is carried on the Player row
// itself (cost_tenths) rather than a separate price-history table — see
// DESIGN.md for why a full price-series entity was judged out of scope for
// this pass.
func (s *PlayerRefresherService) SyncPlayerPricesFromBootstrap(ctx context.Context, bootstrap fplapi.Bootstrap, gameweekID int) error {
	return s.SyncPlayersOwnershipFromBootstrap(ctx, bootstrap)
}

func elementTypeToPosition(elementType int) player.Position {
	switch elementType {
	case 1:
		return player.PositionGoalkeeper
	case 2:
		return player.PositionDefender
	case 3:
		return player.PositionMidfielder
	default:
		return player.PositionForward
	}
}

func parsePlayerRefID(playerID string) (int, error) {
	var id int
	_, err := fmt.Sscanf(playerID, "%d", &id)
	return id, err
}

func parseFloat(s string) float64 {
	var f float64
	_, _ = fmt.Sscanf(s, "%f", &f)
	return f
}
