package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/fantasy-league/internal/domain/baseline"
	"github.com/riskibarqy/fantasy-league/internal/domain/manager"
	"github.com/riskibarqy/fantasy-league/internal/platform/logging"
)

// BaselineCaptureConfig holds the matchday-window sizing the baseline
// capture uses to decide when a new matchday has started within a gameweek.
type BaselineCaptureConfig struct {
	MatchdayWindowBefore time.Duration
	MatchdayWindowStop   time.Duration
}

// BaselineCaptureService implements component C5.
type BaselineCaptureService struct {
	store  Store
	cfg    BaselineCaptureConfig
	logger *logging.Logger
}

func NewBaselineCaptureService(store Store, cfg BaselineCaptureConfig, logger *logging.Logger) *BaselineCaptureService {
	if cfg.MatchdayWindowBefore <= 0 {
		cfg.MatchdayWindowBefore = 90 * time.Minute
	}
	if cfg.MatchdayWindowStop <= 0 {
		cfg.MatchdayWindowStop = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BaselineCaptureService{store: store, cfg: cfg, logger: logger}
}

// CaptureGameweekBaselineInput bundles CaptureGameweekBaseline's inputs.
type CaptureGameweekBaselineInput struct {
	GameweekID        int
	ManagerIDs        []string
	AnyFixtureStarted bool
	Now               time.Time
}

// CaptureGameweekBaseline sets, for every tracked manager, baseline total
// points and previous overall/mini-league rank from the previous gameweek's
// row. Gated on no fixture of the gameweek having started yet; idempotent
// per manager (skips rows that already carry a baseline).
func (s *BaselineCaptureService) CaptureGameweekBaseline(ctx context.Context, in CaptureGameweekBaselineInput) error {
	if in.AnyFixtureStarted {
		s.logger.WarnContext(ctx, "gameweek baseline capture skipped: fixture already started", "gameweek", in.GameweekID)
		return nil
	}

	for _, managerID := range in.ManagerIDs {
		existing, found, err := s.store.Manager.GetHistory(ctx, managerID, in.GameweekID)
		if err != nil {
			return fmt.Errorf("get history for %s: %w", managerID, err)
		}
		if found && existing.HasBaseline() {
			continue
		}

		prev, prevFound, err := s.store.Manager.GetPreviousHistory(ctx, managerID, in.GameweekID)
		if err != nil {
			return fmt.Errorf("get previous history for %s: %w", managerID, err)
		}
		if !prevFound {
			// First tracked gameweek for this manager: no prior row to
			// anchor from, baseline stays unset until next gameweek.
			continue
		}

		history := existing
		history.ManagerID = managerID
		history.GameweekID = in.GameweekID
		baselineTotal := prev.TotalPoints
		history.BaselineTotalPoints = &baselineTotal
		history.PreviousOverallRank = prev.OverallRank
		history.PreviousMiniLeagueRank = prev.MiniLeagueRank

		if err := s.store.Manager.UpsertHistory(ctx, []manager.GameweekHistory{history}); err != nil {
			return fmt.Errorf("upsert baseline for %s: %w", managerID, err)
		}
	}

	return s.captureMatchdayBaseline(ctx, in.GameweekID, in.ManagerIDs, 1, in.Now)
}

// CaptureMatchdayBaselineInput bundles CaptureMatchdayBaseline's inputs.
type CaptureMatchdayBaselineInput struct {
	GameweekID     int
	ManagerIDs     []string
	FirstKickoffAt time.Time
	Now            time.Time
}

// InMatchdayWindow reports whether now falls inside
// [first_kickoff-N_before, first_kickoff-N_stop).
func (s *BaselineCaptureService) InMatchdayWindow(firstKickoffAt, now time.Time) bool {
	start := firstKickoffAt.Add(-s.cfg.MatchdayWindowBefore)
	stop := firstKickoffAt.Add(-s.cfg.MatchdayWindowStop)
	return !now.Before(start) && now.Before(stop)
}

// CaptureMatchdayBaseline records one matchday snapshot row per manager per
// matchday sequence, never rewriting a sequence once present.
func (s *BaselineCaptureService) CaptureMatchdayBaseline(ctx context.Context, in CaptureMatchdayBaselineInput) error {
	if !s.InMatchdayWindow(in.FirstKickoffAt, in.Now) {
		return nil
	}

	sequence, err := s.store.Baseline.NextSequence(ctx, in.GameweekID)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	return s.captureMatchdayBaseline(ctx, in.GameweekID, in.ManagerIDs, sequence, in.Now)
}

func (s *BaselineCaptureService) captureMatchdayBaseline(ctx context.Context, gameweekID int, managerIDs []string, sequence int, now time.Time) error {
	rows := make([]baseline.MatchdayBaseline, 0, len(managerIDs))
	for _, managerID := range managerIDs {
		history, found, err := s.store.Manager.GetHistory(ctx, managerID, gameweekID)
		if err != nil {
			return fmt.Errorf("get history for %s: %w", managerID, err)
		}
		if !found {
			continue
		}
		rows = append(rows, baseline.MatchdayBaseline{
			ManagerID:            managerID,
			GameweekID:           gameweekID,
			MatchdaySequence:     sequence,
			MatchdayDate:         now,
			OverallRankBaseline:  history.OverallRank,
			GameweekRankBaseline: history.GameweekRank,
		})
	}

	if len(rows) == 0 {
		return nil
	}

	return s.store.Baseline.UpsertIfAbsent(ctx, rows)
}
