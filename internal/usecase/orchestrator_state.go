package usecase

import "time"

// State is one of the mutually-exclusive orchestrator states, ordered here by detection priority (highest first).
type State string

const (
	StateOutsideGameweek  State = "OUTSIDE_GAMEWEEK"
	StatePriceWindow      State = "PRICE_WINDOW"
	StateLiveMatches      State = "LIVE_MATCHES"
	StateBonusPending     State = "BONUS_PENDING"
	StateTransferDeadline State = "TRANSFER_DEADLINE"
	StateIdle             State = "IDLE"
)

// FixtureView is the minimal fixture shape the state machine needs,
// decoupled from the fixture domain package so this file has no store
// dependency and can be unit tested directly.
type FixtureView struct {
	GameweekID          int
	KickoffAt           time.Time
	Started             bool
	FinishedProvisional bool
	Finished            bool
}

func (f FixtureView) isInProgress(now time.Time) bool {
	return !f.KickoffAt.After(now) && !f.FinishedProvisional
}

// GameweekView is the minimal gameweek shape the state machine needs.
type GameweekView struct {
	ID         int
	DeadlineAt time.Time
	IsCurrent  bool
	IsNext     bool
}

// PriceWindow describes the configured daily wall-clock price-change
// window, already resolved to absolute instants for "now"'s calendar day in
// the configured local zone.
type PriceWindow struct {
	Start time.Time
	End   time.Time
}

func (w PriceWindow) contains(now time.Time) bool {
	if w.Start.IsZero() || w.End.IsZero() {
		return false
	}
	return !now.Before(w.Start) && now.Before(w.End)
}

// DetectionInput bundles everything DetectState needs for one evaluation.
type DetectionInput struct {
	Now                    time.Time
	CurrentGameweek        *GameweekView
	NextGameweek           *GameweekView
	CurrentGameweekFixtures []FixtureView
	NextGameweekFixtures   []FixtureView
	PriceWindow            PriceWindow
	DeadlinePassedThreshold time.Duration // default 40m

	HasSuccessfulBatch func(gameweekID int) bool
}

// DetectionResult carries the detected state plus any state-specific
// context the orchestrator needs to act on it.
type DetectionResult struct {
	State              State
	// LiveGameweekID is set under LIVE_MATCHES/BONUS_PENDING: the gameweek
	// whose fixtures are actually live, which may be NextGameweek if the
	// live fixture belongs to it.
	LiveGameweekID int
	// TargetGameweekID is set under TRANSFER_DEADLINE: the gameweek the
	// deadline batch must run for.
	TargetGameweekID int
}

// DetectState evaluates the orchestrator state table, in priority
// order.
func DetectState(in DetectionInput) DetectionResult {
	threshold := in.DeadlinePassedThreshold
	if threshold <= 0 {
		threshold = 40 * time.Minute
	}

	if in.CurrentGameweek == nil {
		return DetectionResult{State: StateOutsideGameweek}
	}

	if in.PriceWindow.contains(in.Now) {
		return DetectionResult{State: StatePriceWindow}
	}

	if gwID, ok := anyFixtureInProgress(in.Now, in.CurrentGameweek.ID, in.CurrentGameweekFixtures); ok {
		return DetectionResult{State: StateLiveMatches, LiveGameweekID: gwID}
	}
	if in.NextGameweek != nil {
		if gwID, ok := anyFixtureInProgress(in.Now, in.NextGameweek.ID, in.NextGameweekFixtures); ok {
			return DetectionResult{State: StateLiveMatches, LiveGameweekID: gwID}
		}
	}

	if allFinishedProvisionalNotFinished(in.CurrentGameweekFixtures) {
		return DetectionResult{State: StateBonusPending, LiveGameweekID: in.CurrentGameweek.ID}
	}

	if target, ok := detectTransferDeadline(in, threshold); ok {
		return DetectionResult{State: StateTransferDeadline, TargetGameweekID: target}
	}

	return DetectionResult{State: StateIdle}
}

func anyFixtureInProgress(now time.Time, gameweekID int, fixtures []FixtureView) (int, bool) {
	for _, f := range fixtures {
		if f.isInProgress(now) {
			return gameweekID, true
		}
	}
	return 0, false
}

func allFinishedProvisionalNotFinished(fixtures []FixtureView) bool {
	if len(fixtures) == 0 {
		return false
	}
	for _, f := range fixtures {
		if !f.FinishedProvisional || f.Finished {
			return false
		}
	}
	return true
}

func detectTransferDeadline(in DetectionInput, threshold time.Duration) (int, bool) {
	check := func(gw *GameweekView, fixtures []FixtureView) (int, bool) {
		if gw == nil {
			return 0, false
		}
		if in.Now.Sub(gw.DeadlineAt) < threshold {
			return 0, false
		}
		if in.HasSuccessfulBatch != nil && in.HasSuccessfulBatch(gw.ID) {
			return 0, false
		}
		for _, f := range fixtures {
			if f.Started {
				return 0, false
			}
		}
		return gw.ID, true
	}

	if id, ok := check(in.NextGameweek, in.NextGameweekFixtures); ok {
		return id, true
	}
	if id, ok := check(in.CurrentGameweek, in.CurrentGameweekFixtures); ok {
		return id, true
	}
	return 0, false
}

// FastLoopCadence is the illustrative fast-loop cadence table.
func FastLoopCadence(state State, secondsUntilNextKickoff int, kickoffWindowMinutes, maxIdleSleepSeconds int) time.Duration {
	switch state {
	case StateTransferDeadline:
		return 15 * time.Second
	case StateLiveMatches, StateBonusPending:
		return 10 * time.Second
	case StatePriceWindow:
		return 30 * time.Second
	default:
		if kickoffWindowMinutes <= 0 {
			kickoffWindowMinutes = 5
		}
		if maxIdleSleepSeconds <= 0 {
			maxIdleSleepSeconds = 60
		}
		untilKickoffWindow := secondsUntilNextKickoff - kickoffWindowMinutes*60
		sleep := maxIdleSleepSeconds
		if untilKickoffWindow > 0 && untilKickoffWindow < sleep {
			sleep = untilKickoffWindow
		}
		if sleep < 1 {
			sleep = 1
		}
		return time.Duration(sleep) * time.Second
	}
}

// SlowLoopCadence returns P_slow: 60s while live, 300s otherwise.
func SlowLoopCadence(state State) time.Duration {
	switch state {
	case StateLiveMatches, StateBonusPending:
		return 60 * time.Second
	default:
		return 300 * time.Second
	}
}
