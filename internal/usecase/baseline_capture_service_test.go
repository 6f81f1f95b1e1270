package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fantasy-league/internal/domain/baseline"
	"github.com/riskibarqy/fantasy-league/internal/domain/manager"
	"github.com/riskibarqy/fantasy-league/internal/usecase"
)

type fakeBaselineRepo struct {
	written []baseline.MatchdayBaseline
	seq     int
}

func (f *fakeBaselineRepo) UpsertIfAbsent(ctx context.Context, items []baseline.MatchdayBaseline) error {
	f.written = append(f.written, items...)
	return nil
}
func (f *fakeBaselineRepo) NextSequence(ctx context.Context, gameweekID int) (int, error) {
	f.seq++
	return f.seq, nil
}
func (f *fakeBaselineRepo) ListByGameweek(ctx context.Context, gameweekID int) ([]baseline.MatchdayBaseline, error) {
	return f.written, nil
}

func TestCaptureGameweekBaseline_SkippedWhenFixtureStarted(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	baselineRepo := &fakeBaselineRepo{}
	store := usecase.Store{Manager: managerRepo, Baseline: baselineRepo}
	svc := usecase.NewBaselineCaptureService(store, usecase.BaselineCaptureConfig{}, nil)

	err := svc.CaptureGameweekBaseline(context.Background(), usecase.CaptureGameweekBaselineInput{
		GameweekID:        11,
		ManagerIDs:        []string{"1"},
		AnyFixtureStarted: true,
	})
	require.NoError(t, err)
	assert.Empty(t, managerRepo.upserted)
}

func TestCaptureGameweekBaseline_IdempotentOnceSet(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	already := 42
	managerRepo.history[historyKey("1", 11)] = manager.GameweekHistory{ManagerID: "1", GameweekID: 11, BaselineTotalPoints: &already}
	baselineRepo := &fakeBaselineRepo{}
	store := usecase.Store{Manager: managerRepo, Baseline: baselineRepo}
	svc := usecase.NewBaselineCaptureService(store, usecase.BaselineCaptureConfig{}, nil)

	err := svc.CaptureGameweekBaseline(context.Background(), usecase.CaptureGameweekBaselineInput{
		GameweekID: 11,
		ManagerIDs: []string{"1"},
	})
	require.NoError(t, err)

	updated := managerRepo.history[historyKey("1", 11)]
	require.NotNil(t, updated.BaselineTotalPoints)
	assert.Equal(t, 42, *updated.BaselineTotalPoints)
}

func TestCaptureGameweekBaseline_CapturesFromPreviousGameweek(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	managerRepo.history[historyKey("1", 10)] = manager.GameweekHistory{
		ManagerID: "1", GameweekID: 10, TotalPoints: 120, OverallRank: 500, MiniLeagueRank: 2,
	}
	baselineRepo := &fakeBaselineRepo{}
	store := usecase.Store{Manager: managerRepo, Baseline: baselineRepo}
	svc := usecase.NewBaselineCaptureService(store, usecase.BaselineCaptureConfig{}, nil)

	err := svc.CaptureGameweekBaseline(context.Background(), usecase.CaptureGameweekBaselineInput{
		GameweekID: 11,
		ManagerIDs: []string{"1"},
		Now:        time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	updated := managerRepo.history[historyKey("1", 11)]
	require.NotNil(t, updated.BaselineTotalPoints)
	assert.Equal(t, 120, *updated.BaselineTotalPoints)
	assert.Equal(t, 500, updated.PreviousOverallRank)
	assert.Equal(t, 2, updated.PreviousMiniLeagueRank)
}

func TestInMatchdayWindow_RespectsDefaultBounds(t *testing.T) {
	svc := usecase.NewBaselineCaptureService(usecase.Store{}, usecase.BaselineCaptureConfig{}, nil)
	kickoff := time.Date(2026, 8, 1, 15, 0, 0, 0, time.UTC)

	assert.False(t, svc.InMatchdayWindow(kickoff, kickoff.Add(-91*time.Minute)))
	assert.True(t, svc.InMatchdayWindow(kickoff, kickoff.Add(-30*time.Minute)))
	assert.False(t, svc.InMatchdayWindow(kickoff, kickoff.Add(-4*time.Minute)))
}

func TestCaptureMatchdayBaseline_WritesOneRowPerManager(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	managerRepo.history[historyKey("1", 11)] = manager.GameweekHistory{ManagerID: "1", GameweekID: 11, OverallRank: 10, GameweekRank: 3}
	baselineRepo := &fakeBaselineRepo{}
	store := usecase.Store{Manager: managerRepo, Baseline: baselineRepo}
	svc := usecase.NewBaselineCaptureService(store, usecase.BaselineCaptureConfig{}, nil)

	kickoff := time.Date(2026, 8, 1, 15, 0, 0, 0, time.UTC)
	err := svc.CaptureMatchdayBaseline(context.Background(), usecase.CaptureMatchdayBaselineInput{
		GameweekID:     11,
		ManagerIDs:     []string{"1"},
		FirstKickoffAt: kickoff,
		Now:            kickoff.Add(-30 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, baselineRepo.written, 1)
	assert.Equal(t, 10, baselineRepo.written[0].OverallRankBaseline)
}
