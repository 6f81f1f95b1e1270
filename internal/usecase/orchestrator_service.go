package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/fantasy-league/external/fplapi"
	"github.com/riskibarqy/fantasy-league/internal/domain/fixture"
	"github.com/riskibarqy/fantasy-league/internal/domain/gameweek"
	"github.com/riskibarqy/fantasy-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/fantasy-league/internal/domain/league"
	"github.com/riskibarqy/fantasy-league/internal/domain/team"
	"github.com/riskibarqy/fantasy-league/internal/platform/logging"
)

// OrchestratorConfig holds the cadence/pacing knobs the refresh loops read.
// Zero values fall back to the illustrative defaults in
// NewOrchestratorService.
type OrchestratorConfig struct {
	KickoffWindowMinutes    int
	MaxIdleSleepSeconds     int
	LiveStandingsInterval   time.Duration
	ForceRefreshInterval    time.Duration
	RankMonitorInterval     time.Duration
	PredictionsLoopInterval time.Duration
	DeadlineSettleSeconds   time.Duration
	DeadlineBatchSize       int
	DeadlineBatchSleep      time.Duration
	MinBatchSuccessRate     float64
	RequiredManagerIDs      []string
	SampleManagerID         string
	DeadlinePassedThreshold time.Duration
	PriceWindow             PriceWindow
	PriceWindowCooldown     time.Duration
}

// OrchestratorService runs the two cooperating fast/slow loops, the
// predictions auxiliary loop, and the nine-phase deadline batch. Grounded on
// job_orchestrator_service.go's injectable clock and run()-delegation
// pattern, repurposed from that file's league-scoped schedule/live dispatch
// into a state-keyed cadence table.
type OrchestratorService struct {
	store       Store
	client      *fplapi.Client
	playerSvc   *PlayerRefresherService
	managerSvc  *ManagerRefresherService
	baselineSvc *BaselineCaptureService
	cfg         OrchestratorConfig
	logger      *logging.Logger
	now         func() time.Time

	// In-memory throttle state. Only ever touched from the single fast-loop
	// goroutine (lastLiveStandingsAt, priceWindowActive) or the single
	// slow-loop goroutine (lastForcedRefreshAt, lastRankPollAt) — each field
	// belongs to exactly one loop, so no mutex is needed.
	priceWindowActive   bool
	lastLiveStandingsAt time.Time
	lastForcedRefreshAt time.Time
	lastRankPollAt      time.Time
}

func NewOrchestratorService(
	store Store,
	client *fplapi.Client,
	playerSvc *PlayerRefresherService,
	managerSvc *ManagerRefresherService,
	baselineSvc *BaselineCaptureService,
	cfg OrchestratorConfig,
	logger *logging.Logger,
) *OrchestratorService {
	if cfg.KickoffWindowMinutes <= 0 {
		cfg.KickoffWindowMinutes = 5
	}
	if cfg.MaxIdleSleepSeconds <= 0 {
		cfg.MaxIdleSleepSeconds = 60
	}
	if cfg.LiveStandingsInterval <= 0 {
		cfg.LiveStandingsInterval = 90 * time.Second
	}
	if cfg.ForceRefreshInterval <= 0 {
		cfg.ForceRefreshInterval = time.Hour
	}
	if cfg.RankMonitorInterval <= 0 {
		cfg.RankMonitorInterval = 5 * time.Minute
	}
	if cfg.PredictionsLoopInterval <= 0 {
		cfg.PredictionsLoopInterval = 30 * time.Minute
	}
	if cfg.DeadlineSettleSeconds <= 0 || cfg.DeadlineSettleSeconds > 60*time.Second {
		cfg.DeadlineSettleSeconds = 60 * time.Second
	}
	if cfg.DeadlineBatchSize <= 0 {
		cfg.DeadlineBatchSize = 10
	}
	if cfg.MinBatchSuccessRate <= 0 {
		cfg.MinBatchSuccessRate = 0.8
	}
	if cfg.DeadlinePassedThreshold <= 0 {
		cfg.DeadlinePassedThreshold = 40 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OrchestratorService{
		store:       store,
		client:      client,
		playerSvc:   playerSvc,
		managerSvc:  managerSvc,
		baselineSvc: baselineSvc,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// FastCycleResult is RunFastCycle's outcome: the state detected this cycle
// and the cadence to sleep before the next one.
type FastCycleResult struct {
	State State
	Sleep time.Duration
}

// RunFastCycle executes one pass of the fast loop's phases a-f.
func (s *OrchestratorService) RunFastCycle(ctx context.Context) (FastCycleResult, error) {
	s.recordHeartbeat(ctx, jobscheduler.PathFast)

	// Phase (a): refresh Gameweek/Team reference data, then re-detect state.
	bootstrap, err := s.client.GetBootstrap(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "fast cycle: bootstrap fetch failed", "error", err)
	} else {
		s.applyBootstrap(ctx, bootstrap)
	}

	detection, secondsUntilNextKickoff, err := s.detectState(ctx)
	if err != nil {
		return FastCycleResult{}, fmt.Errorf("detect state: %w", err)
	}

	switch detection.State {
	case StateLiveMatches, StateBonusPending:
		s.runLiveMatchesPhase(ctx, detection, bootstrap)
	case StatePriceWindow:
		s.runPriceWindowPhase(ctx, bootstrap)
	default:
		s.runCatchUpPhase(ctx, detection)
	}

	s.maybeRunPostPriceWindowCohortRefresh(ctx, s.now().UTC())

	if detection.State == StateTransferDeadline {
		s.maybeRunDeadlineBatch(ctx, detection)
	}

	s.refreshAggregatesForState(ctx, detection.State)

	s.recordHeartbeat(ctx, jobscheduler.PathFast)

	sleep := FastLoopCadence(detection.State, secondsUntilNextKickoff, s.cfg.KickoffWindowMinutes, s.cfg.MaxIdleSleepSeconds)
	return FastCycleResult{State: detection.State, Sleep: sleep}, nil
}

// RunFastLoop drives RunFastCycle forever until ctx is cancelled.
func (s *OrchestratorService) RunFastLoop(ctx context.Context) {
	for {
		result, err := s.RunFastCycle(ctx)
		sleep := time.Duration(s.cfg.MaxIdleSleepSeconds) * time.Second
		if err != nil {
			s.logger.ErrorContext(ctx, "fast loop cycle failed", "error", err)
		} else {
			sleep = result.Sleep
		}
		if sleep <= 0 {
			sleep = time.Second
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// RunSlowCycle executes one pass of the slow loop's phases a-e.
func (s *OrchestratorService) RunSlowCycle(ctx context.Context) (time.Duration, error) {
	detection, _, err := s.detectState(ctx)
	if err != nil {
		return 0, fmt.Errorf("detect state: %w", err)
	}

	switch detection.State {
	case StateLiveMatches, StateBonusPending:
		s.runAuthoritativeManagerRefresh(ctx, detection.LiveGameweekID)
	default:
		s.maybeForceHourlyRefresh(ctx)
	}

	s.maybeCaptureMatchdayBaseline(ctx)
	s.maybeFinalizeRanks(ctx)

	s.recordHeartbeat(ctx, jobscheduler.PathSlow)

	return SlowLoopCadence(detection.State), nil
}

// RunSlowLoop drives RunSlowCycle forever until ctx is cancelled.
func (s *OrchestratorService) RunSlowLoop(ctx context.Context) {
	for {
		sleep, err := s.RunSlowCycle(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "slow loop cycle failed", "error", err)
			sleep = 300 * time.Second
		}
		if sleep <= 0 {
			sleep = 300 * time.Second
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// RunPredictionsCycle is the auxiliary, best-effort predictions-scraper
// loop. It never blocks or gates the fast/slow loops; a failure here is
// logged by the caller and simply retried next period.
func (s *OrchestratorService) RunPredictionsCycle(ctx context.Context) error {
	bootstrap, err := s.client.GetBootstrap(ctx)
	if err != nil {
		return fmt.Errorf("fetch bootstrap: %w", err)
	}
	return s.playerSvc.SyncPlayersOwnershipFromBootstrap(ctx, bootstrap)
}

// RunPredictionsLoop drives RunPredictionsCycle on a fixed wall-clock period,
// independent of the fast/slow loops.
func (s *OrchestratorService) RunPredictionsLoop(ctx context.Context) {
	interval := s.cfg.PredictionsLoopInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	for {
		if err := s.RunPredictionsCycle(ctx); err != nil {
			s.logger.WarnContext(ctx, "predictions loop cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (s *OrchestratorService) applyBootstrap(ctx context.Context, bootstrap fplapi.Bootstrap) {
	gameweeks := make([]gameweek.Gameweek, 0, len(bootstrap.Events))
	for _, e := range bootstrap.Events {
		gameweeks = append(gameweeks, gameweek.Gameweek{
			ID:          e.ID,
			Name:        e.Name,
			DeadlineAt:  e.DeadlineTime,
			ReleaseAt:   e.ReleaseTime,
			IsCurrent:   e.IsCurrent,
			IsNext:      e.IsNext,
			IsPrevious:  e.IsPrevious,
			Finished:    e.Finished,
			DataChecked: e.DataChecked,
		})
	}
	if err := s.store.Gameweek.Upsert(ctx, gameweeks); err != nil {
		s.logger.WarnContext(ctx, "apply bootstrap: upsert gameweeks failed", "error", err)
	}

	teams := make([]team.Team, 0, len(bootstrap.Teams))
	for _, t := range bootstrap.Teams {
		teams = append(teams, team.Team{
			ID:              fmt.Sprintf("%d", t.ID),
			ShortName:       t.ShortName,
			Name:            t.Name,
			StrengthOverall: t.Strength,
			StrengthHome:    t.StrengthHome,
			StrengthAway:    t.StrengthAway,
		})
	}
	if err := s.store.Team.Upsert(ctx, teams); err != nil {
		s.logger.WarnContext(ctx, "apply bootstrap: upsert teams failed", "error", err)
	}

	if err := s.playerSvc.SyncPlayersOwnershipFromBootstrap(ctx, bootstrap); err != nil {
		s.logger.WarnContext(ctx, "apply bootstrap: sync player ownership failed", "error", err)
	}
}

// InspectState runs state detection read-only, for a diagnostics caller
// that wants to know what the fast loop would do without running it. It
// returns the detected state, the cadence the fast loop would sleep for
// next, and the estimated seconds until the next kickoff.
func (s *OrchestratorService) InspectState(ctx context.Context) (DetectionResult, time.Duration, error) {
	detection, secondsUntilNextKickoff, err := s.detectState(ctx)
	if err != nil {
		return DetectionResult{}, 0, err
	}
	cadence := FastLoopCadence(detection.State, secondsUntilNextKickoff, s.cfg.KickoffWindowMinutes, s.cfg.MaxIdleSleepSeconds)
	return detection, cadence, nil
}

// detectState loads the store state DetectState needs and returns the
// detected result plus the estimated seconds until the next kickoff (used
// only to size the IDLE cadence).
func (s *OrchestratorService) detectState(ctx context.Context) (DetectionResult, int, error) {
	now := s.now().UTC()
	current, found, err := s.store.Gameweek.GetCurrent(ctx)
	if err != nil {
		return DetectionResult{}, 0, fmt.Errorf("get current gameweek: %w", err)
	}

	in := DetectionInput{
		Now:                     now,
		PriceWindow:             s.cfg.PriceWindow,
		DeadlinePassedThreshold: s.cfg.DeadlinePassedThreshold,
		HasSuccessfulBatch: func(gameweekID int) bool {
			ok, err := s.store.JobScheduler.HasSuccessfulDeadlineBatch(ctx, gameweekID)
			if err != nil {
				s.logger.WarnContext(ctx, "has successful batch check failed", "gameweek", gameweekID, "error", err)
				return false
			}
			return ok
		},
	}

	secondsUntilNextKickoff := s.cfg.MaxIdleSleepSeconds

	if found {
		view := GameweekView{ID: current.ID, DeadlineAt: current.DeadlineAt, IsCurrent: current.IsCurrent, IsNext: current.IsNext}
		in.CurrentGameweek = &view

		fixtures, err := s.store.Fixture.ListByGameweek(ctx, current.ID)
		if err != nil {
			return DetectionResult{}, 0, fmt.Errorf("list fixtures for gameweek %d: %w", current.ID, err)
		}
		in.CurrentGameweekFixtures = toFixtureViews(fixtures)

		if seconds, err := s.nextKickoffSeconds(ctx, current.ID, now); err == nil {
			secondsUntilNextKickoff = seconds
		}
	}

	gameweeks, err := s.store.Gameweek.List(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "list gameweeks failed", "error", err)
	} else {
		for _, gw := range gameweeks {
			if !gw.IsNext {
				continue
			}
			view := GameweekView{ID: gw.ID, DeadlineAt: gw.DeadlineAt, IsCurrent: gw.IsCurrent, IsNext: gw.IsNext}
			in.NextGameweek = &view
			if fixtures, err := s.store.Fixture.ListByGameweek(ctx, gw.ID); err == nil {
				in.NextGameweekFixtures = toFixtureViews(fixtures)
			}
			break
		}
	}

	return DetectState(in), secondsUntilNextKickoff, nil
}

func (s *OrchestratorService) nextKickoffSeconds(ctx context.Context, gameweekID int, now time.Time) (int, error) {
	next, ok, err := s.store.Fixture.GetNextKickoff(ctx, gameweekID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return s.cfg.MaxIdleSleepSeconds, nil
	}
	seconds := int(next.Sub(now).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return seconds, nil
}

func toFixtureViews(items []fixture.Fixture) []FixtureView {
	out := make([]FixtureView, 0, len(items))
	for _, f := range items {
		out = append(out, FixtureView{
			GameweekID:          f.GameweekID,
			KickoffAt:           f.KickoffAt,
			Started:             f.Started,
			FinishedProvisional: f.FinishedProvisional,
			Finished:            f.Finished,
		})
	}
	return out
}

func filterByGameweek(items []fixture.Fixture, gameweekID int) []fixture.Fixture {
	out := make([]fixture.Fixture, 0, len(items))
	for _, f := range items {
		if f.GameweekID == gameweekID {
			out = append(out, f)
		}
	}
	return out
}

// syncFixtures upserts the full upstream fixture list (all gameweeks, the
// FPL fixtures endpoint is not gameweek-scoped) and returns the domain rows
// written.
func (s *OrchestratorService) syncFixtures(ctx context.Context, upstream []fplapi.Fixture) ([]fixture.Fixture, error) {
	items := make([]fixture.Fixture, 0, len(upstream))
	for _, f := range upstream {
		if f.Event == nil {
			continue
		}
		items = append(items, fixture.Fixture{
			ID:                  fmt.Sprintf("%d", f.ID),
			GameweekID:          *f.Event,
			HomeTeamID:          fmt.Sprintf("%d", f.TeamH),
			AwayTeamID:          fmt.Sprintf("%d", f.TeamA),
			KickoffAt:           f.KickoffTime,
			Started:             f.Started,
			FinishedProvisional: f.FinishedProvisional,
			Finished:            f.Finished,
			Minutes:             f.Minutes,
			HomeScore:           f.TeamHScore,
			AwayScore:           f.TeamAScore,
		})
	}
	if err := s.store.Fixture.Upsert(ctx, items); err != nil {
		return nil, fmt.Errorf("upsert fixtures: %w", err)
	}
	return items, nil
}

// updateScoreboards applies a DGW-safe scoreboard write: scores only once
// both sides are known, minutes the max of upstream's value and
// elapsed-since-kickoff capped at 120, with the store enforcing the final
// monotonic non-decrease.
func (s *OrchestratorService) updateScoreboards(ctx context.Context, items []fixture.Fixture, now time.Time) {
	for _, f := range items {
		if f.HomeScore == nil || f.AwayScore == nil {
			continue
		}
		minutes := f.Minutes
		if !f.KickoffAt.IsZero() && f.KickoffAt.Before(now) {
			elapsed := int(now.Sub(f.KickoffAt).Minutes())
			if elapsed > 120 {
				elapsed = 120
			}
			if elapsed > minutes {
				minutes = elapsed
			}
		}
		minutes = f.ClampMinutes(minutes)
		if err := s.store.Fixture.UpdateScoreboard(ctx, f.ID, f.HomeScore, f.AwayScore, minutes); err != nil {
			s.logger.WarnContext(ctx, "update fixture scoreboard failed", "fixture_id", f.ID, "error", err)
		}
	}
}

// buildPlayerFixtureRefs maps each bootstrap element's FPL id to the
// fixtureRef describing its club's fixture this gameweek, which C3 needs to
// derive team/opponent/home-away context from the live payload alone.
func (s *OrchestratorService) buildPlayerFixtureRefs(bootstrap fplapi.Bootstrap, fixtures []fixture.Fixture) map[int]fixtureRef {
	fixtureByTeam := make(map[string]fixture.Fixture, len(fixtures)*2)
	for _, f := range fixtures {
		fixtureByTeam[f.HomeTeamID] = f
		fixtureByTeam[f.AwayTeamID] = f
	}

	out := make(map[int]fixtureRef, len(bootstrap.Elements))
	for _, el := range bootstrap.Elements {
		teamID := fmt.Sprintf("%d", el.TeamID)
		f, ok := fixtureByTeam[teamID]
		if !ok {
			continue
		}
		wasHome := f.HomeTeamID == teamID
		opponent := f.AwayTeamID
		if !wasHome {
			opponent = f.HomeTeamID
		}
		out[el.ID] = fixtureRef{
			ID:                  f.ID,
			TeamID:              teamID,
			Opponent:            opponent,
			WasHome:             wasHome,
			Finished:            f.Finished,
			FinishedProvisional: f.FinishedProvisional,
		}
	}
	return out
}

// collectCandidatePlayerIDs gathers the player-stats trigger set: players
// with nonzero minutes in the live payload, players who already have a
// stats row this gameweek, or players in any tracked manager's picks.
func (s *OrchestratorService) collectCandidatePlayerIDs(ctx context.Context, gameweekID int, liveData *fplapi.EventLive) ([]string, error) {
	ids := make(map[string]struct{})

	if liveData != nil {
		for _, el := range liveData.Elements {
			if el.Stats.Minutes > 0 {
				ids[fmt.Sprintf("%d", el.ID)] = struct{}{}
			}
		}
	}

	if existing, err := s.store.PlayerStats.ListByGameweek(ctx, gameweekID, nil); err != nil {
		s.logger.WarnContext(ctx, "collect candidate players: list gameweek stats failed", "error", err)
	} else {
		for _, e := range existing {
			ids[e.PlayerID] = struct{}{}
		}
	}

	managerIDs, err := s.store.Manager.GetTrackedManagerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("get tracked manager ids: %w", err)
	}
	for _, managerID := range managerIDs {
		picks, err := s.store.Manager.GetPicks(ctx, managerID, gameweekID)
		if err != nil {
			continue
		}
		for _, p := range picks {
			ids[p.PlayerID] = struct{}{}
		}
	}

	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// runLiveMatchesPhase implements fast-loop phase (b).
func (s *OrchestratorService) runLiveMatchesPhase(ctx context.Context, detection DetectionResult, bootstrap fplapi.Bootstrap) {
	gwID := detection.LiveGameweekID

	var wg sync.WaitGroup
	var upstreamFixtures []fplapi.Fixture
	var fixturesErr error
	var liveData fplapi.EventLive
	var liveErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		upstreamFixtures, fixturesErr = s.client.GetFixtures(ctx)
	}()
	go func() {
		defer wg.Done()
		liveData, liveErr = s.client.GetEventLive(ctx, gwID)
	}()
	wg.Wait()

	var fixtures []fixture.Fixture
	if fixturesErr != nil {
		s.logger.WarnContext(ctx, "live phase: fetch fixtures failed", "error", fixturesErr)
	} else if items, err := s.syncFixtures(ctx, upstreamFixtures); err != nil {
		s.logger.WarnContext(ctx, "live phase: sync fixtures failed", "error", err)
	} else {
		fixtures = filterByGameweek(items, gwID)
		s.updateScoreboards(ctx, fixtures, s.now().UTC())
	}

	if liveErr != nil {
		s.logger.WarnContext(ctx, "live phase: fetch event live failed", "error", liveErr)
		return
	}

	playerIDs, err := s.collectCandidatePlayerIDs(ctx, gwID, &liveData)
	if err != nil {
		s.logger.WarnContext(ctx, "live phase: collect candidate players failed", "error", err)
		return
	}

	fixtureRefs := s.buildPlayerFixtureRefs(bootstrap, fixtures)
	if err := s.playerSvc.RefreshPlayerStats(ctx, RefreshPlayerStatsInput{
		GameweekID:      gwID,
		PlayerIDs:       playerIDs,
		LiveData:        &liveData,
		FixturesByFPLID: fixtureRefs,
		LiveOnly:        true,
	}); err != nil {
		s.logger.WarnContext(ctx, "live phase: refresh player stats failed", "error", err)
	}

	s.maybeRefreshLiveStandings(ctx, gwID, playerIDs)
}

// maybeRefreshLiveStandings is the interval-throttled portion of live
// matches handling: refreshing manager points from live data, recomputing
// mini-league rank, and refreshing standings, gated on every manager's
// update succeeding.
func (s *OrchestratorService) maybeRefreshLiveStandings(ctx context.Context, gameweekID int, playerIDs []string) {
	if s.now().Sub(s.lastLiveStandingsAt) < s.cfg.LiveStandingsInterval {
		return
	}
	s.lastLiveStandingsAt = s.now()

	managerIDs, err := s.store.Manager.GetTrackedManagerIDs(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "live standings: get tracked managers failed", "error", err)
		return
	}

	rows, err := s.store.PlayerStats.ListByGameweek(ctx, gameweekID, playerIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "live standings: list player stats failed", "error", err)
		return
	}
	states := aggregatePlayerMatchStates(rows)

	allOK, err := s.managerSvc.RefreshManagerPointsFromLiveData(ctx, RefreshManagerPointsFromLiveDataInput{
		ManagerIDs: managerIDs,
		GameweekID: gameweekID,
		Players:    states,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "live standings: refresh manager points failed", "error", err)
		return
	}
	if !allOK {
		s.logger.WarnContext(ctx, "live standings: partial manager update, skipping standings refresh", "gameweek", gameweekID)
		return
	}

	leagues, err := s.store.League.List(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "live standings: list leagues failed", "error", err)
		return
	}
	for _, lg := range leagues {
		if err := s.managerSvc.CalculateMiniLeagueRanks(ctx, lg.ID, gameweekID, true); err != nil {
			s.logger.WarnContext(ctx, "live standings: calculate mini league ranks failed", "league_id", lg.ID, "error", err)
		}
	}
}

// runCatchUpPhase implements fast-loop phase (c): outside
// live/bonus-pending, pull confirmed bonus for any still-provisional player
// once a fixture has finished or gone finished_provisional.
func (s *OrchestratorService) runCatchUpPhase(ctx context.Context, detection DetectionResult) {
	gwID := detection.TargetGameweekID
	if gwID == 0 {
		current, found, err := s.store.Gameweek.GetCurrent(ctx)
		if err != nil || !found {
			return
		}
		gwID = current.ID
	}

	upstreamFixtures, err := s.client.GetFixtures(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "catch-up phase: fetch fixtures failed", "error", err)
		return
	}
	items, err := s.syncFixtures(ctx, upstreamFixtures)
	if err != nil {
		s.logger.WarnContext(ctx, "catch-up phase: sync fixtures failed", "error", err)
		return
	}

	anyFinishedOrProvisional := false
	for _, f := range filterByGameweek(items, gwID) {
		if f.Finished || f.FinishedProvisional {
			anyFinishedOrProvisional = true
			break
		}
	}
	if !anyFinishedOrProvisional {
		return
	}

	provisional, err := s.store.PlayerStats.ListProvisionalBonus(ctx, gwID)
	if err != nil {
		s.logger.WarnContext(ctx, "catch-up phase: list provisional bonus failed", "error", err)
		return
	}
	if len(provisional) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(provisional))
	playerIDs := make([]string, 0, len(provisional))
	for _, r := range provisional {
		if _, ok := seen[r.PlayerID]; ok {
			continue
		}
		seen[r.PlayerID] = struct{}{}
		playerIDs = append(playerIDs, r.PlayerID)
	}

	if err := s.playerSvc.RefreshPlayerStats(ctx, RefreshPlayerStatsInput{
		GameweekID:            gwID,
		PlayerIDs:             playerIDs,
		ExpectLiveUnavailable: true,
	}); err != nil {
		s.logger.WarnContext(ctx, "catch-up phase: refresh player stats failed", "error", err)
	}
}

// runPriceWindowPhase syncs prices from bootstrap during the nightly price
// window and marks the window active so the post-window cooldown refresh
// fires once it closes.
func (s *OrchestratorService) runPriceWindowPhase(ctx context.Context, bootstrap fplapi.Bootstrap) {
	gwID := 0
	if current, found, err := s.store.Gameweek.GetCurrent(ctx); err == nil && found {
		gwID = current.ID
	}
	if err := s.playerSvc.SyncPlayerPricesFromBootstrap(ctx, bootstrap, gwID); err != nil {
		s.logger.WarnContext(ctx, "price window: sync prices failed", "error", err)
	}
	s.priceWindowActive = true
}

// maybeRunPostPriceWindowCohortRefresh runs one cohort-wide manager refresh
// once the price window has closed, within a configured cooldown window.
func (s *OrchestratorService) maybeRunPostPriceWindowCohortRefresh(ctx context.Context, now time.Time) {
	if !s.priceWindowActive {
		return
	}
	if s.cfg.PriceWindow.contains(now) {
		return
	}
	s.priceWindowActive = false

	cooldownEnd := s.cfg.PriceWindow.End.Add(s.cfg.PriceWindowCooldown)
	if !s.cfg.PriceWindow.End.IsZero() && now.After(cooldownEnd) {
		s.logger.WarnContext(ctx, "price window: missed cooldown window, skipping cohort refresh")
		return
	}

	current, found, err := s.store.Gameweek.GetCurrent(ctx)
	if err != nil || !found {
		return
	}
	managerIDs, err := s.store.Manager.GetTrackedManagerIDs(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "price window: get tracked managers failed", "error", err)
		return
	}
	for _, managerID := range managerIDs {
		if err := s.managerSvc.RefreshManagerHistory(ctx, managerID, current.ID, true); err != nil {
			s.logger.WarnContext(ctx, "price window: refresh manager history failed", "manager_id", managerID, "error", err)
		}
	}
}

// maybeRunDeadlineBatch implements fast-loop phase (e).
func (s *OrchestratorService) maybeRunDeadlineBatch(ctx context.Context, detection DetectionResult) {
	gwID := detection.TargetGameweekID
	if gwID == 0 {
		return
	}
	current, found, err := s.store.Gameweek.GetCurrent(ctx)
	if err != nil || !found || current.ID != gwID {
		return
	}
	hasBatch, err := s.store.JobScheduler.HasSuccessfulDeadlineBatch(ctx, gwID)
	if err != nil {
		s.logger.WarnContext(ctx, "deadline batch check failed", "gameweek", gwID, "error", err)
		return
	}
	if hasBatch {
		return
	}
	if _, err := s.RunDeadlineBatch(ctx, gwID); err != nil {
		s.logger.WarnContext(ctx, "deadline batch run failed", "gameweek", gwID, "error", err)
	}
}

// refreshAggregatesForState implements fast-loop phase (f).
func (s *OrchestratorService) refreshAggregatesForState(ctx context.Context, state State) {
	if s.store.Aggregate == nil {
		return
	}
	var err error
	switch state {
	case StateLiveMatches, StateBonusPending:
		err = s.store.Aggregate.RefreshLiveSubset(ctx)
	default:
		err = s.store.Aggregate.RefreshAll(ctx)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "refresh aggregates failed", "state", state, "error", err)
	}
}

// runAuthoritativeManagerRefresh implements slow-loop phase
// (a): the authoritative (store+upstream) C4 pass during live play.
func (s *OrchestratorService) runAuthoritativeManagerRefresh(ctx context.Context, gameweekID int) {
	if gameweekID == 0 {
		current, found, err := s.store.Gameweek.GetCurrent(ctx)
		if err != nil || !found {
			return
		}
		gameweekID = current.ID
	}
	managerIDs, err := s.store.Manager.GetTrackedManagerIDs(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "slow loop: get tracked managers failed", "error", err)
		return
	}
	for _, managerID := range managerIDs {
		if err := s.managerSvc.RefreshManagerHistory(ctx, managerID, gameweekID, true); err != nil {
			s.logger.WarnContext(ctx, "slow loop: refresh manager history failed", "manager_id", managerID, "error", err)
		}
	}
	if s.store.Aggregate != nil {
		if err := s.store.Aggregate.RefreshLiveSubset(ctx); err != nil {
			s.logger.WarnContext(ctx, "slow loop: refresh live aggregates failed", "error", err)
		}
	}
}

// maybeForceHourlyRefresh implements slow-loop phase (b).
func (s *OrchestratorService) maybeForceHourlyRefresh(ctx context.Context) {
	if s.now().Sub(s.lastForcedRefreshAt) < s.cfg.ForceRefreshInterval {
		return
	}
	s.lastForcedRefreshAt = s.now()

	current, found, err := s.store.Gameweek.GetCurrent(ctx)
	if err != nil || !found {
		return
	}
	managerIDs, err := s.store.Manager.GetTrackedManagerIDs(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "hourly refresh: get tracked managers failed", "error", err)
		return
	}
	for _, managerID := range managerIDs {
		if err := s.managerSvc.RefreshManagerHistory(ctx, managerID, current.ID, current.IsCurrent); err != nil {
			s.logger.WarnContext(ctx, "hourly refresh: refresh manager history failed", "manager_id", managerID, "error", err)
		}
	}
}

// maybeCaptureMatchdayBaseline implements slow-loop phase (c).
func (s *OrchestratorService) maybeCaptureMatchdayBaseline(ctx context.Context) {
	current, found, err := s.store.Gameweek.GetCurrent(ctx)
	if err != nil || !found {
		return
	}
	firstKickoff, ok, err := s.store.Fixture.GetFirstKickoff(ctx, current.ID)
	if err != nil || !ok {
		return
	}
	managerIDs, err := s.cohortManagerIDs(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "matchday baseline: cohort lookup failed", "error", err)
		return
	}
	if err := s.baselineSvc.CaptureMatchdayBaseline(ctx, CaptureMatchdayBaselineInput{
		GameweekID:     current.ID,
		ManagerIDs:     managerIDs,
		FirstKickoffAt: firstKickoff,
		Now:            s.now().UTC(),
	}); err != nil {
		s.logger.WarnContext(ctx, "matchday baseline capture failed", "gameweek", current.ID, "error", err)
	}
}

// maybeFinalizeRanks implements slow-loop phase (d).
func (s *OrchestratorService) maybeFinalizeRanks(ctx context.Context) {
	current, found, err := s.store.Gameweek.GetCurrent(ctx)
	if err != nil || !found || current.RanksFinalized {
		return
	}
	fixtures, err := s.store.Fixture.ListByGameweek(ctx, current.ID)
	if err != nil || len(fixtures) == 0 {
		return
	}
	for _, f := range fixtures {
		if !f.FinishedProvisional {
			return
		}
	}

	finalize := func() {
		if err := s.store.Gameweek.MarkRanksFinalized(ctx, current.ID); err != nil {
			s.logger.WarnContext(ctx, "mark ranks finalized failed", "gameweek", current.ID, "error", err)
			return
		}
		managerIDs, err := s.store.Manager.GetTrackedManagerIDs(ctx)
		if err != nil {
			return
		}
		for _, managerID := range managerIDs {
			if err := s.managerSvc.RefreshManagerHistory(ctx, managerID, current.ID, true); err != nil {
				s.logger.WarnContext(ctx, "rank finalize refresh failed", "manager_id", managerID, "error", err)
			}
		}
	}

	if current.DataChecked {
		finalize()
		return
	}

	if s.now().Sub(s.lastRankPollAt) < s.cfg.RankMonitorInterval {
		return
	}
	s.lastRankPollAt = s.now()

	if s.cfg.SampleManagerID == "" {
		return
	}
	changed, err := s.managerSvc.CheckFPLRankChange(ctx, s.cfg.SampleManagerID, current.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "check fpl rank change failed", "error", err)
		return
	}
	if changed {
		finalize()
	}
}

// cohortManagerIDs is the union of every mini-league's membership plus the
// configured REQUIRED_MANAGER_IDS.
func (s *OrchestratorService) cohortManagerIDs(ctx context.Context) ([]string, error) {
	ids, err := s.store.League.ListAllMemberManagerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list member manager ids: %w", err)
	}
	set := make(map[string]struct{}, len(ids)+len(s.cfg.RequiredManagerIDs))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for _, id := range s.cfg.RequiredManagerIDs {
		set[id] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *OrchestratorService) recordHeartbeat(ctx context.Context, path jobscheduler.RefreshPath) {
	if s.store.JobScheduler == nil {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event := jobscheduler.RefreshEvent{OccurredAt: s.now().UTC(), Path: path, TraceID: traceID, SpanID: spanID}
	if err := s.store.JobScheduler.InsertRefreshEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record heartbeat failed", "path", path, "error", err)
	}
}

// ---- Deadline Batch ----

// RunDeadlineBatch executes the nine-phase, sequential, crash-safe Deadline
// Batch. Each phase is timed and recorded on the DeadlineBatchRun row so a
// crash mid-batch leaves an inspectable trail and allows retry next cycle.
func (s *OrchestratorService) RunDeadlineBatch(ctx context.Context, gameweekID int) (jobscheduler.DeadlineBatchRun, error) {
	runID, err := s.store.JobScheduler.InsertDeadlineBatchStart(ctx, gameweekID)
	if err != nil {
		return jobscheduler.DeadlineBatchRun{}, fmt.Errorf("insert deadline batch start: %w", err)
	}

	var phases []jobscheduler.BatchPhase
	recordPhase := func(name string, startedAt time.Time, success bool, detail string) {
		phases = append(phases, jobscheduler.BatchPhase{
			Name: name, StartedAt: startedAt, FinishedAt: s.now().UTC(), Success: success, Detail: detail,
		})
	}
	finish := func(success bool, reason string) (jobscheduler.DeadlineBatchRun, error) {
		if err := s.store.JobScheduler.UpdateDeadlineBatchFinish(ctx, runID, success, reason, phases); err != nil {
			s.logger.WarnContext(ctx, "deadline batch: record finish failed", "gameweek", gameweekID, "error", err)
		}
		finishedAt := s.now().UTC()
		succ := success
		return jobscheduler.DeadlineBatchRun{
			ID: runID, GameweekID: gameweekID, FinishedAt: &finishedAt, Success: &succ,
			FailureReason: reason, PhaseBreakdown: phases,
		}, nil
	}

	// Phase 1: bootstrap check.
	phaseStart := s.now().UTC()
	bootstrap, ok := s.bootstrapCheck(ctx)
	recordPhase("bootstrap_check", phaseStart, ok, "")
	if !ok {
		s.logger.WarnContext(ctx, "deadline batch: bootstrap check failed", "gameweek", gameweekID)
		return finish(false, "bootstrap_failed")
	}

	// Phase 2: settle.
	phaseStart = s.now().UTC()
	if err := s.sleepCtx(ctx, s.cfg.DeadlineSettleSeconds); err != nil {
		recordPhase("settle", phaseStart, false, "cancelled")
		return finish(false, "cancelled")
	}
	recordPhase("settle", phaseStart, true, "")

	cohort, err := s.cohortManagerIDs(ctx)
	if err != nil {
		return jobscheduler.DeadlineBatchRun{}, fmt.Errorf("resolve cohort: %w", err)
	}

	// Phase 3: concurrent picks + transfers, batched.
	phaseStart = s.now().UTC()
	picksMeta, successCount := s.runPicksAndTransfersBatch(ctx, cohort, gameweekID, bootstrap)
	successRate := 1.0
	if len(cohort) > 0 {
		successRate = float64(successCount) / float64(len(cohort))
	}
	phase3OK := successRate >= s.cfg.MinBatchSuccessRate
	recordPhase("picks_transfers", phaseStart, phase3OK, fmt.Sprintf("%d/%d succeeded", successCount, len(cohort)))
	if !phase3OK {
		return finish(false, "success rate below threshold")
	}

	// Phase 4: refuse-if-started guard.
	phaseStart = s.now().UTC()
	started, err := s.anyFixtureStarted(ctx, gameweekID)
	if err != nil {
		recordPhase("refuse_if_started", phaseStart, false, err.Error())
		return finish(false, "fixture status check failed")
	}
	recordPhase("refuse_if_started", phaseStart, !started, "")
	if started {
		s.logger.WarnContext(ctx, "deadline batch: refused, fixtures started", "gameweek", gameweekID)
		return finish(false, "fixtures started")
	}

	// Phase 5: seed history + mini-league ranks.
	phaseStart = s.now().UTC()
	if err := s.managerSvc.SeedManagerGameweekHistoryFromPrevious(ctx, cohort, gameweekID, picksMeta); err != nil {
		recordPhase("seed_history", phaseStart, false, err.Error())
		return finish(false, "seed history failed")
	}
	leagues, err := s.store.League.List(ctx)
	if err != nil {
		recordPhase("seed_history", phaseStart, false, err.Error())
		return finish(false, "list leagues failed")
	}
	for _, lg := range leagues {
		if err := s.managerSvc.CalculateMiniLeagueRanks(ctx, lg.ID, gameweekID, false); err != nil {
			s.logger.WarnContext(ctx, "deadline batch: calculate mini league ranks failed", "league_id", lg.ID, "error", err)
		}
	}
	recordPhase("seed_history", phaseStart, true, "")

	// Phase 6: baselines, cohort-wide.
	phaseStart = s.now().UTC()
	if err := s.baselineSvc.CaptureGameweekBaseline(ctx, CaptureGameweekBaselineInput{
		GameweekID: gameweekID, ManagerIDs: cohort, AnyFixtureStarted: false, Now: s.now().UTC(),
	}); err != nil {
		recordPhase("baselines", phaseStart, false, err.Error())
		return finish(false, "baseline capture failed")
	}
	recordPhase("baselines", phaseStart, true, "")

	// Phase 7: per-league player whitelist.
	phaseStart = s.now().UTC()
	if err := s.refreshPlayerWhitelists(ctx, gameweekID, leagues); err != nil {
		recordPhase("whitelist", phaseStart, false, err.Error())
	} else {
		recordPhase("whitelist", phaseStart, true, "")
	}

	// Phase 8: aggregates.
	phaseStart = s.now().UTC()
	if s.store.Aggregate != nil {
		if err := s.store.Aggregate.RefreshAll(ctx); err != nil {
			recordPhase("aggregates", phaseStart, false, err.Error())
		} else {
			recordPhase("aggregates", phaseStart, true, "")
		}
	} else {
		recordPhase("aggregates", phaseStart, true, "skipped: no aggregate store configured")
	}

	// Phase 9: record success.
	return finish(true, "")
}

func (s *OrchestratorService) sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// bootstrapCheck implements Deadline Batch phase 1: two attempts, 30s apart.
func (s *OrchestratorService) bootstrapCheck(ctx context.Context) (fplapi.Bootstrap, bool) {
	const attempts = 2
	const interval = 30 * time.Second
	for attempt := 0; attempt < attempts; attempt++ {
		bootstrap, err := s.client.GetBootstrap(ctx)
		if err == nil {
			return bootstrap, true
		}
		s.logger.WarnContext(ctx, "deadline batch: bootstrap check attempt failed", "attempt", attempt+1, "error", err)
		if attempt < attempts-1 {
			if err := s.sleepCtx(ctx, interval); err != nil {
				return fplapi.Bootstrap{}, false
			}
		}
	}
	return fplapi.Bootstrap{}, false
}

// runPicksAndTransfersBatch implements Deadline Batch phase 3: for each
// manager, concurrently refresh picks and transfers via
// github.com/sourcegraph/conc/pool's panic-safe error pool, batched by
// DeadlineBatchSize with DeadlineBatchSleep between batches.
func (s *OrchestratorService) runPicksAndTransfersBatch(ctx context.Context, managerIDs []string, gameweekID int, bootstrap fplapi.Bootstrap) (map[string]PicksResult, int) {
	results := make(map[string]PicksResult, len(managerIDs))
	var mu sync.Mutex

	batchSize := s.cfg.DeadlineBatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(managerIDs); start += batchSize {
		end := start + batchSize
		if end > len(managerIDs) {
			end = len(managerIDs)
		}
		batch := managerIDs[start:end]

		p := pool.New().WithErrors()
		for _, managerID := range batch {
			managerID := managerID
			p.Go(func() error {
				picksResult, err := s.managerSvc.RefreshPicks(ctx, managerID, gameweekID)
				if err != nil {
					s.logger.WarnContext(ctx, "deadline batch: refresh picks failed", "manager_id", managerID, "error", err)
					return err
				}
				if err := s.managerSvc.RefreshTransfers(ctx, managerID, gameweekID, bootstrap); err != nil {
					s.logger.WarnContext(ctx, "deadline batch: refresh transfers failed", "manager_id", managerID, "error", err)
					return err
				}
				mu.Lock()
				results[managerID] = picksResult
				mu.Unlock()
				return nil
			})
		}
		_ = p.Wait()

		if end < len(managerIDs) {
			if err := s.sleepCtx(ctx, s.cfg.DeadlineBatchSleep); err != nil {
				return results, len(results)
			}
		}
	}

	return results, len(results)
}

func (s *OrchestratorService) anyFixtureStarted(ctx context.Context, gameweekID int) (bool, error) {
	fixtures, err := s.store.Fixture.ListByGameweek(ctx, gameweekID)
	if err != nil {
		return false, fmt.Errorf("list fixtures: %w", err)
	}
	for _, f := range fixtures {
		if f.Started {
			return true, nil
		}
	}
	return false, nil
}

// refreshPlayerWhitelists implements Deadline Batch phase 7: per league, the
// set of player ids appearing in at least one member's picks this gameweek.
func (s *OrchestratorService) refreshPlayerWhitelists(ctx context.Context, gameweekID int, leagues []league.MiniLeague) error {
	for _, lg := range leagues {
		members, err := s.store.League.ListMembers(ctx, lg.ID)
		if err != nil {
			return fmt.Errorf("list members for %s: %w", lg.ID, err)
		}
		seen := make(map[string]struct{})
		for _, m := range members {
			picks, err := s.store.Manager.GetPicks(ctx, m.ManagerID, gameweekID)
			if err != nil {
				s.logger.WarnContext(ctx, "whitelist: get picks failed", "manager_id", m.ManagerID, "error", err)
				continue
			}
			for _, p := range picks {
				seen[p.PlayerID] = struct{}{}
			}
		}
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		if err := s.store.League.ReplacePlayerWhitelist(ctx, lg.ID, gameweekID, ids); err != nil {
			return fmt.Errorf("replace whitelist for %s: %w", lg.ID, err)
		}
	}
	return nil
}
