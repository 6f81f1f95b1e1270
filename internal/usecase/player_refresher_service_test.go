package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fantasy-league/external/fplapi"
	"github.com/riskibarqy/fantasy-league/internal/domain/player"
	"github.com/riskibarqy/fantasy-league/internal/domain/playerstats"
	"github.com/riskibarqy/fantasy-league/internal/usecase"
)

type fakePlayerStatsRepo struct {
	upserted []playerstats.GameweekStats
	existing []playerstats.GameweekStats
}

func (f *fakePlayerStatsRepo) Upsert(ctx context.Context, items []playerstats.GameweekStats) error {
	f.upserted = append(f.upserted, items...)
	return nil
}

func (f *fakePlayerStatsRepo) ListByGameweek(ctx context.Context, gameweekID int, playerIDs []string) ([]playerstats.GameweekStats, error) {
	return f.existing, nil
}

func (f *fakePlayerStatsRepo) ListByFixture(ctx context.Context, fixtureID string) ([]playerstats.GameweekStats, error) {
	return nil, nil
}

func (f *fakePlayerStatsRepo) ListProvisionalBonus(ctx context.Context, gameweekID int) ([]playerstats.GameweekStats, error) {
	return nil, nil
}

type fakePlayerRepo struct {
	synced []player.Player
}

func (f *fakePlayerRepo) Upsert(ctx context.Context, items []player.Player) error { return nil }
func (f *fakePlayerRepo) List(ctx context.Context) ([]player.Player, error)       { return nil, nil }
func (f *fakePlayerRepo) GetByIDs(ctx context.Context, playerIDs []string) ([]player.Player, error) {
	return nil, nil
}
func (f *fakePlayerRepo) SyncOwnership(ctx context.Context, items []player.Player) error {
	f.synced = append(f.synced, items...)
	return nil
}

func TestRefreshPlayerStats_LiveData_SynthesizesProvisionalBonusPerFixture(t *testing.T) {
	statsRepo := &fakePlayerStatsRepo{}
	store := usecase.Store{PlayerStats: statsRepo}
	svc := usecase.NewPlayerRefresherService(store, nil, usecase.PlayerRefresherConfig{}, nil)

	live := &fplapi.EventLive{
		Elements: []fplapi.EventLiveElement{
			{ID: 1, Stats: fplapi.EventLiveElementStats{Minutes: 90, TotalPoints: 6, BPS: 35}},
			{ID: 2, Stats: fplapi.EventLiveElementStats{Minutes: 90, TotalPoints: 2, BPS: 30}},
			{ID: 3, Stats: fplapi.EventLiveElementStats{Minutes: 90, TotalPoints: 2, BPS: 30}},
			{ID: 4, Stats: fplapi.EventLiveElementStats{Minutes: 90, TotalPoints: 2, BPS: 25}},
		},
	}

	err := svc.RefreshPlayerStats(context.Background(), usecase.RefreshPlayerStatsInput{
		GameweekID: 10,
		PlayerIDs:  []string{"1", "2", "3", "4"},
		LiveData:   live,
	})
	require.NoError(t, err)

	byPlayer := map[string]playerstats.GameweekStats{}
	for _, r := range statsRepo.upserted {
		byPlayer[r.PlayerID] = r
	}
	assert.Equal(t, 3, byPlayer["1"].Bonus)
	assert.Equal(t, 2, byPlayer["2"].Bonus)
	assert.Equal(t, 2, byPlayer["3"].Bonus)
	assert.Equal(t, 0, byPlayer["4"].Bonus)
}

func TestSyncPlayersOwnershipFromBootstrap_MapsElementTypeToPosition(t *testing.T) {
	playerRepo := &fakePlayerRepo{}
	store := usecase.Store{Player: playerRepo}
	svc := usecase.NewPlayerRefresherService(store, nil, usecase.PlayerRefresherConfig{}, nil)

	bootstrap := fplapi.Bootstrap{
		Elements: []fplapi.BootstrapElement{
			{ID: 1, TeamID: 5, ElementType: 1, WebName: "Keeper", NowCost: 45, SelectedByPercent: "12.3"},
			{ID: 2, TeamID: 5, ElementType: 3, WebName: "Mid", NowCost: 75, SelectedByPercent: "40.0"},
		},
	}

	err := svc.SyncPlayersOwnershipFromBootstrap(context.Background(), bootstrap)
	require.NoError(t, err)
	require.Len(t, playerRepo.synced, 2)
	assert.Equal(t, player.PositionGoalkeeper, playerRepo.synced[0].Position)
	assert.Equal(t, player.PositionMidfielder, playerRepo.synced[1].Position)
	assert.Equal(t, 45, playerRepo.synced[0].CostTenths)
}
