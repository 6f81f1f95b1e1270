package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/fantasy-league/external/fplapi"
	"github.com/riskibarqy/fantasy-league/internal/domain/league"
	"github.com/riskibarqy/fantasy-league/internal/domain/manager"
	"github.com/riskibarqy/fantasy-league/internal/domain/playerstats"
	"github.com/riskibarqy/fantasy-league/internal/platform/logging"
)

// ManagerRefresherConfig holds the per-cycle fan-out knobs for the manager
// refresher.
type ManagerRefresherConfig struct {
	PickBatchSize    int
	PickSleepBetween time.Duration
}

// ManagerRefresherService implements component C4.
type ManagerRefresherService struct {
	store  Store
	client *fplapi.Client
	cfg    ManagerRefresherConfig
	logger *logging.Logger
}

func NewManagerRefresherService(store Store, client *fplapi.Client, cfg ManagerRefresherConfig, logger *logging.Logger) *ManagerRefresherService {
	if cfg.PickBatchSize <= 0 {
		cfg.PickBatchSize = 10
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ManagerRefresherService{store: store, client: client, cfg: cfg, logger: logger}
}

// PicksResult is what RefreshPicks hands back to the Deadline Batch so it
// can collect active_chip/gameweek_rank without a second upstream call.
type PicksResult struct {
	ManagerID    string
	ActiveChip   manager.Chip
	GameweekRank int
	Picks        []manager.Pick
}

// RefreshPicks fetches and persists one manager's picks for a gameweek.
func (s *ManagerRefresherService) RefreshPicks(ctx context.Context, managerID string, gameweekID int) (PicksResult, error) {
	payload, err := s.client.GetEntryPicks(ctx, atoiOrZero(managerID), gameweekID)
	if err != nil {
		return PicksResult{}, fmt.Errorf("fetch entry picks: %w", err)
	}

	picks := make([]manager.Pick, 0, len(payload.Picks))
	chip := parseChip(payload.ActiveChip)
	for _, p := range payload.Picks {
		picks = append(picks, manager.Pick{
			ManagerID:  managerID,
			GameweekID: gameweekID,
			Position:   p.Position,
			PlayerID:   fmt.Sprintf("%d", p.Element),
			IsCaptain:  p.IsCaptain,
			IsVice:     p.IsVice,
			Multiplier: p.Multiplier,
		})
	}
	picks = normalizeCaptainMultipliers(picks, chip)

	if len(payload.AutomaticSubs) > 0 {
		subs := make([]manager.Pick, 0, len(payload.AutomaticSubs))
		for _, sub := range payload.AutomaticSubs {
			subs = append(subs, manager.Pick{
				PlayerID:                fmt.Sprintf("%d", sub.ElementIn),
				AutoSubReplacedPlayerID: fmt.Sprintf("%d", sub.ElementOut),
			})
		}
		playerStates, err := s.loadPlayerMatchStates(ctx, gameweekID, picks)
		if err != nil {
			return PicksResult{}, err
		}
		picks = applyUpstreamSubs(picks, subs, playerStates)
	} else {
		playerStates, err := s.loadPlayerMatchStates(ctx, gameweekID, picks)
		if err != nil {
			return PicksResult{}, err
		}
		picks = inferAutomaticSubs(picks, playerStates)
	}

	if err := s.store.Manager.UpsertPicks(ctx, managerID, gameweekID, picks); err != nil {
		return PicksResult{}, fmt.Errorf("upsert picks: %w", err)
	}

	return PicksResult{
		ManagerID:    managerID,
		ActiveChip:   chip,
		GameweekRank: payload.EntryHistory.OverallRank,
		Picks:        picks,
	}, nil
}

func (s *ManagerRefresherService) loadPlayerMatchStates(ctx context.Context, gameweekID int, picks []manager.Pick) (map[string]PlayerMatchState, error) {
	playerIDs := make([]string, 0, len(picks))
	for _, p := range picks {
		playerIDs = append(playerIDs, p.PlayerID)
	}
	rows, err := s.store.PlayerStats.ListByGameweek(ctx, gameweekID, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("list player stats: %w", err)
	}
	return aggregatePlayerMatchStates(rows), nil
}

// aggregatePlayerMatchStates sums per-fixture rows into one state per
// player, satisfying the DGW no-double-count rule: a double-gameweek player's EffectivePoints is the sum across
// both fixtures, counted once.
func aggregatePlayerMatchStates(rows []playerstats.GameweekStats) map[string]PlayerMatchState {
	bonusByFixture := map[string]map[string]int{}
	byFixture := map[string][]playerstats.GameweekStats{}
	for _, r := range rows {
		byFixture[r.FixtureID] = append(byFixture[r.FixtureID], r)
	}
	for fixtureID, fixtureRows := range byFixture {
		provisional := make([]playerstats.GameweekStats, 0, len(fixtureRows))
		for _, r := range fixtureRows {
			if r.BonusStatus == playerstats.BonusProvisional {
				provisional = append(provisional, r)
			}
		}
		if len(provisional) > 0 {
			bonusByFixture[fixtureID] = SynthesizeProvisionalBonus(provisional)
		}
	}

	out := make(map[string]PlayerMatchState, len(rows))
	for _, r := range rows {
		synthesized := 0
		if byBonus, ok := bonusByFixture[r.FixtureID]; ok {
			synthesized = byBonus[r.PlayerID]
		}
		st, ok := out[r.PlayerID]
		if !ok {
			st = PlayerMatchState{PlayerID: r.PlayerID}
		}
		st.Minutes += r.Minutes
		st.EffectivePoints += r.EffectivePoints(synthesized)
		st.FixtureFinished = st.FixtureFinished || r.MatchFinished
		out[r.PlayerID] = st
	}
	return out
}

// RefreshTransfers fetches and persists one manager's transfer history.
func (s *ManagerRefresherService) RefreshTransfers(ctx context.Context, managerID string, gameweekID int, bootstrap fplapi.Bootstrap) error {
	all, err := s.client.GetEntryTransfers(ctx, atoiOrZero(managerID))
	if err != nil {
		return fmt.Errorf("fetch entry transfers: %w", err)
	}

	costByElement := make(map[int]int, len(bootstrap.Elements))
	for _, el := range bootstrap.Elements {
		costByElement[el.ID] = el.NowCost
	}

	items := make([]manager.Transfer, 0)
	for _, t := range all {
		if t.Event != gameweekID {
			continue
		}
		priceIn := t.ElementInCost
		priceOut := t.ElementOutCost
		if nowCost, ok := costByElement[t.ElementIn]; ok {
			priceIn = nowCost
		}
		items = append(items, manager.Transfer{
			ManagerID:            managerID,
			GameweekID:           gameweekID,
			PlayerInID:           fmt.Sprintf("%d", t.ElementIn),
			PlayerOutID:          fmt.Sprintf("%d", t.ElementOut),
			PriceInTenths:        priceIn,
			PriceOutTenths:       priceOut,
			NetPriceChangeTenths: priceIn - priceOut,
			TransferAt:           t.Time.Unix(),
		})
	}

	return s.store.Manager.UpsertTransfers(ctx, managerID, gameweekID, items)
}

// RefreshManagerHistory fetches and persists one manager's gameweek
// history.
func (s *ManagerRefresherService) RefreshManagerHistory(ctx context.Context, managerID string, gameweekID int, isCurrentGameweek bool) error {
	picks, err := s.store.Manager.GetPicks(ctx, managerID, gameweekID)
	if err != nil {
		return fmt.Errorf("get picks: %w", err)
	}
	playerStates, err := s.loadPlayerMatchStates(ctx, gameweekID, picks)
	if err != nil {
		return err
	}

	existing, found, err := s.store.Manager.GetHistory(ctx, managerID, gameweekID)
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}
	var previousTotal *int
	if found {
		previousTotal = &existing.TotalPoints
	} else if prev, prevFound, err := s.store.Manager.GetPreviousHistory(ctx, managerID, gameweekID); err == nil && prevFound {
		previousTotal = &prev.TotalPoints
	}

	history := existing
	history.ManagerID = managerID
	history.GameweekID = gameweekID

	entryHistory, err := s.client.GetEntryHistory(ctx, atoiOrZero(managerID))
	if err == nil {
		for _, ev := range entryHistory.Current {
			if ev.Event == gameweekID {
				history.OverallRank = ev.OverallRank
				history.TransferCost = ev.EventTransfersCost
				break
			}
		}
	}

	entryPicks, err := s.client.GetEntryPicks(ctx, atoiOrZero(managerID), gameweekID)
	if err == nil {
		history.GameweekRank = entryPicks.EntryHistory.OverallRank
		history.ActiveChip = parseChip(entryPicks.ActiveChip)
	}

	result := CalculateGameweekPoints(GameweekPointsInput{
		Picks:        picks,
		Players:      playerStates,
		TransferCost: history.TransferCost,
		ActiveChip:   history.ActiveChip,
	})
	history.GameweekPoints = result.GameweekPoints
	history.TotalPoints = ResolveTotalPoints(history.BaselineTotalPoints, previousTotal, result.GameweekPoints)

	if isCurrentGameweek {
		entry, err := s.client.GetEntry(ctx, atoiOrZero(managerID))
		if err == nil {
			history.TeamValueTenths = manager.NormalizeTenths(entry.LastDeadlineValue)
			history.BankTenths = manager.NormalizeTenths(entry.LastDeadlineBank)
		}
	}

	return s.store.Manager.UpsertHistoryPreservingBaseline(ctx, []manager.GameweekHistory{history})
}

// RefreshManagerPointsLiveOnlyInput is the cohort-wide, store-only input for
// RefreshManagerPointsLiveOnly.
type RefreshManagerPointsLiveOnlyInput struct {
	ManagerIDs []string
	GameweekID int
}

// RefreshManagerPointsLiveOnly recomputes manager points from already-stored
// data, with no upstream calls. Returns false if any manager's recompute
// failed, so callers can gate the standings-aggregate refresh.
func (s *ManagerRefresherService) RefreshManagerPointsLiveOnly(ctx context.Context, in RefreshManagerPointsLiveOnlyInput) (bool, error) {
	allOK := true
	rows := make([]manager.GameweekHistory, 0, len(in.ManagerIDs))

	for _, managerID := range in.ManagerIDs {
		picks, err := s.store.Manager.GetPicks(ctx, managerID, in.GameweekID)
		if err != nil {
			s.logger.WarnContext(ctx, "live-only points: get picks failed", "manager_id", managerID, "error", err)
			allOK = false
			continue
		}
		playerStates, err := s.loadPlayerMatchStates(ctx, in.GameweekID, picks)
		if err != nil {
			s.logger.WarnContext(ctx, "live-only points: load player states failed", "manager_id", managerID, "error", err)
			allOK = false
			continue
		}
		existing, found, err := s.store.Manager.GetHistory(ctx, managerID, in.GameweekID)
		if err != nil {
			s.logger.WarnContext(ctx, "live-only points: get history failed", "manager_id", managerID, "error", err)
			allOK = false
			continue
		}

		result := CalculateGameweekPoints(GameweekPointsInput{Picks: picks, Players: playerStates, ActiveChip: existing.ActiveChip})

		history := existing
		history.ManagerID = managerID
		history.GameweekID = in.GameweekID
		history.GameweekPoints = result.GameweekPoints
		var previousTotal *int
		if found {
			previousTotal = &existing.TotalPoints
		}
		history.TotalPoints = ResolveTotalPoints(existing.BaselineTotalPoints, previousTotal, result.GameweekPoints)

		rows = append(rows, history)
	}

	if err := s.store.Manager.UpsertHistoryPreservingBaseline(ctx, rows); err != nil {
		return false, fmt.Errorf("upsert history: %w", err)
	}
	return allOK, nil
}

// RefreshManagerPointsFromLiveDataInput avoids per-manager DB reads of
// player stats by reusing an already-fetched event-live payload.
type RefreshManagerPointsFromLiveDataInput struct {
	ManagerIDs      []string
	GameweekID      int
	Players         map[string]PlayerMatchState
}

func (s *ManagerRefresherService) RefreshManagerPointsFromLiveData(ctx context.Context, in RefreshManagerPointsFromLiveDataInput) (bool, error) {
	allOK := true
	rows := make([]manager.GameweekHistory, 0, len(in.ManagerIDs))

	for _, managerID := range in.ManagerIDs {
		picks, err := s.store.Manager.GetPicks(ctx, managerID, in.GameweekID)
		if err != nil {
			s.logger.WarnContext(ctx, "live-data points: get picks failed", "manager_id", managerID, "error", err)
			allOK = false
			continue
		}
		existing, found, err := s.store.Manager.GetHistory(ctx, managerID, in.GameweekID)
		if err != nil {
			s.logger.WarnContext(ctx, "live-data points: get history failed", "manager_id", managerID, "error", err)
			allOK = false
			continue
		}

		result := CalculateGameweekPoints(GameweekPointsInput{Picks: picks, Players: in.Players, ActiveChip: existing.ActiveChip})

		history := existing
		history.ManagerID = managerID
		history.GameweekID = in.GameweekID
		history.GameweekPoints = result.GameweekPoints
		var previousTotal *int
		if found {
			previousTotal = &existing.TotalPoints
		}
		history.TotalPoints = ResolveTotalPoints(existing.BaselineTotalPoints, previousTotal, result.GameweekPoints)

		rows = append(rows, history)
	}

	if err := s.store.Manager.UpsertHistoryPreservingBaseline(ctx, rows); err != nil {
		return false, fmt.Errorf("upsert history: %w", err)
	}
	return allOK, nil
}

// SeedManagerGameweekHistoryFromPrevious seeds each manager's new-gameweek
// history row from their previous gameweek's totals.
func (s *ManagerRefresherService) SeedManagerGameweekHistoryFromPrevious(ctx context.Context, managerIDs []string, newGameweekID int, picksMeta map[string]PicksResult) error {
	rows := make([]manager.GameweekHistory, 0, len(managerIDs))
	for _, managerID := range managerIDs {
		prev, found, err := s.store.Manager.GetPreviousHistory(ctx, managerID, newGameweekID)
		if err != nil {
			return fmt.Errorf("get previous history for %s: %w", managerID, err)
		}

		existing, existingFound, err := s.store.Manager.GetHistory(ctx, managerID, newGameweekID)
		if err != nil {
			return fmt.Errorf("get existing history for %s: %w", managerID, err)
		}

		history := existing
		history.ManagerID = managerID
		history.GameweekID = newGameweekID
		if found {
			history.TotalPoints = prev.TotalPoints
			history.TeamValueTenths = prev.TeamValueTenths
			history.BankTenths = prev.BankTenths
			history.OverallRank = prev.OverallRank
			history.MiniLeagueRank = prev.MiniLeagueRank
		}
		if meta, ok := picksMeta[managerID]; ok {
			history.ActiveChip = meta.ActiveChip
			history.GameweekRank = meta.GameweekRank
			transfersMade := 0
			for _, p := range meta.Picks {
				if p.WasAutoSubbedIn {
					transfersMade++
				}
			}
			history.TransfersMade = transfersMade
		}
		if existingFound && existing.GameweekPoints != 0 {
			history.GameweekPoints = existing.GameweekPoints
		}

		rows = append(rows, history)
	}

	return s.store.Manager.UpsertHistoryPreservingBaseline(ctx, rows)
}

// CalculateMiniLeagueRanks only recomputes ranks once any fixture of the
// gameweek has started; before that, deadline-time ordering is preserved.
func (s *ManagerRefresherService) CalculateMiniLeagueRanks(ctx context.Context, leagueID string, gameweekID int, anyFixtureStarted bool) error {
	if !anyFixtureStarted {
		return nil
	}

	members, err := s.store.League.ListMembers(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}

	previous, err := s.store.League.ListStandings(ctx, leagueID, gameweekID)
	if err != nil {
		return fmt.Errorf("list standings: %w", err)
	}
	previousRankByManager := make(map[string]int, len(previous))
	for _, row := range previous {
		previousRankByManager[row.ManagerID] = row.Rank
	}

	rows := make([]league.Standing, 0, len(members))
	for _, m := range members {
		history, found, err := s.store.Manager.GetHistory(ctx, m.ManagerID, gameweekID)
		if err != nil {
			return fmt.Errorf("get history for %s: %w", m.ManagerID, err)
		}
		total := 0
		if found {
			total = history.TotalPoints
		}
		rows = append(rows, league.Standing{
			LeagueID:     leagueID,
			ManagerID:    m.ManagerID,
			GameweekID:   gameweekID,
			TotalPoints:  total,
			PreviousRank: previousRankByManager[m.ManagerID],
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		return rows[i].ManagerID < rows[j].ManagerID
	})
	league.RankTieBreak(rows)
	for i := range rows {
		rows[i].RankChange = rows[i].PreviousRank - rows[i].Rank
	}

	return s.store.League.ReplaceStandings(ctx, leagueID, gameweekID, rows)
}

// CheckFPLRankChange polls one sample manager and reports whether
// upstream's rank now differs from what is stored.
func (s *ManagerRefresherService) CheckFPLRankChange(ctx context.Context, sampleManagerID string, gameweekID int) (bool, error) {
	stored, found, err := s.store.Manager.GetHistory(ctx, sampleManagerID, gameweekID)
	if err != nil {
		return false, fmt.Errorf("get history: %w", err)
	}

	entryHistory, err := s.client.GetEntryHistory(ctx, atoiOrZero(sampleManagerID))
	if err != nil {
		return false, fmt.Errorf("fetch entry history: %w", err)
	}

	for _, ev := range entryHistory.Current {
		if ev.Event != gameweekID {
			continue
		}
		if ev.OverallRank == 0 {
			return false, nil
		}
		if !found || stored.OverallRank != ev.OverallRank {
			return true, nil
		}
	}

	entryPicks, err := s.client.GetEntryPicks(ctx, atoiOrZero(sampleManagerID), gameweekID)
	if err != nil {
		return false, fmt.Errorf("fetch entry picks: %w", err)
	}
	if entryPicks.EntryHistory.OverallRank != 0 && (!found || stored.GameweekRank != entryPicks.EntryHistory.OverallRank) {
		return true, nil
	}

	return false, nil
}

func parseChip(activeChip *string) manager.Chip {
	if activeChip == nil {
		return manager.ChipNone
	}
	switch *activeChip {
	case "3xc":
		return manager.ChipTripleCaptain
	case "bboost":
		return manager.ChipBenchBoost
	case "wildcard":
		return manager.ChipWildcard
	case "freehit":
		return manager.ChipFreeHit
	default:
		return manager.ChipNone
	}
}

func atoiOrZero(s string) int {
	v, _ := parsePlayerRefID(s)
	return v
}
