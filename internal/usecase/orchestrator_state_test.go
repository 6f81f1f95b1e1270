package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/riskibarqy/fantasy-league/internal/usecase"
)

func TestDetectState_OutsideGameweekWhenNoCurrent(t *testing.T) {
	result := usecase.DetectState(usecase.DetectionInput{Now: time.Now()})
	assert.Equal(t, usecase.StateOutsideGameweek, result.State)
}

func TestDetectState_LiveMatchesAtKickoffMinuteRegardlessOfStartedFlag(t *testing.T) {
	now := time.Date(2026, 8, 15, 15, 0, 0, 0, time.UTC)
	gw := &usecase.GameweekView{ID: 1, DeadlineAt: now.Add(-2 * time.Hour), IsCurrent: true}

	result := usecase.DetectState(usecase.DetectionInput{
		Now:             now,
		CurrentGameweek: gw,
		CurrentGameweekFixtures: []usecase.FixtureView{
			{GameweekID: 1, KickoffAt: now, Started: false, FinishedProvisional: false},
		},
	})

	assert.Equal(t, usecase.StateLiveMatches, result.State)
	assert.Equal(t, 1, result.LiveGameweekID)
}

func TestDetectState_BonusPendingWhenAllFinishedProvisionalNotFinished(t *testing.T) {
	now := time.Date(2026, 8, 15, 20, 0, 0, 0, time.UTC)
	gw := &usecase.GameweekView{ID: 1, DeadlineAt: now.Add(-5 * time.Hour)}

	result := usecase.DetectState(usecase.DetectionInput{
		Now:             now,
		CurrentGameweek: gw,
		CurrentGameweekFixtures: []usecase.FixtureView{
			{FinishedProvisional: true, Finished: false},
			{FinishedProvisional: true, Finished: false},
		},
	})

	assert.Equal(t, usecase.StateBonusPending, result.State)
}

func TestDetectState_TransferDeadlineAfterThresholdWithNoStartedFixtureAndNoSuccessfulBatch(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	gw := &usecase.GameweekView{ID: 2, DeadlineAt: now.Add(-41 * time.Minute)}

	result := usecase.DetectState(usecase.DetectionInput{
		Now:             now,
		CurrentGameweek: gw,
		HasSuccessfulBatch: func(id int) bool { return false },
	})

	assert.Equal(t, usecase.StateTransferDeadline, result.State)
	assert.Equal(t, 2, result.TargetGameweekID)
}

func TestDetectState_TransferDeadlineGatedBySuccessfulBatch(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	gw := &usecase.GameweekView{ID: 2, DeadlineAt: now.Add(-41 * time.Minute)}

	result := usecase.DetectState(usecase.DetectionInput{
		Now:             now,
		CurrentGameweek: gw,
		HasSuccessfulBatch: func(id int) bool { return true },
	})

	assert.Equal(t, usecase.StateIdle, result.State)
}

func TestDetectState_TransferDeadlineAbortedWhenFixtureStarted(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	gw := &usecase.GameweekView{ID: 2, DeadlineAt: now.Add(-41 * time.Minute)}

	result := usecase.DetectState(usecase.DetectionInput{
		Now:                     now,
		CurrentGameweek:         gw,
		CurrentGameweekFixtures: []usecase.FixtureView{{Started: true, FinishedProvisional: true, Finished: true}},
		HasSuccessfulBatch:      func(id int) bool { return false },
	})

	assert.Equal(t, usecase.StateIdle, result.State)
}

func TestFastLoopCadence_MatchesStateTable(t *testing.T) {
	assert.Equal(t, 15*time.Second, usecase.FastLoopCadence(usecase.StateTransferDeadline, 0, 5, 60))
	assert.Equal(t, 10*time.Second, usecase.FastLoopCadence(usecase.StateLiveMatches, 0, 5, 60))
	assert.Equal(t, 10*time.Second, usecase.FastLoopCadence(usecase.StateBonusPending, 0, 5, 60))
	assert.Equal(t, 30*time.Second, usecase.FastLoopCadence(usecase.StatePriceWindow, 0, 5, 60))
}

func TestFastLoopCadence_IdleCapsToKickoffWindow(t *testing.T) {
	// 3 minutes until kickoff window minus the 5 minute buffer is negative,
	// so sleep falls back to the idle default instead of going negative.
	d := usecase.FastLoopCadence(usecase.StateIdle, 180, 5, 60)
	assert.Equal(t, 60*time.Second, d)

	// 10 minutes until kickoff minus 5 minute buffer leaves 5 minutes (300s),
	// but it must never exceed the idle default of 60s either.
	d = usecase.FastLoopCadence(usecase.StateIdle, 600, 5, 60)
	assert.Equal(t, 60*time.Second, d)
}
