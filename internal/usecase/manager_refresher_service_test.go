package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fantasy-league/internal/domain/league"
	"github.com/riskibarqy/fantasy-league/internal/domain/manager"
	"github.com/riskibarqy/fantasy-league/internal/domain/playerstats"
	"github.com/riskibarqy/fantasy-league/internal/usecase"
)

type fakeManagerRepo struct {
	picks    map[string][]manager.Pick
	history  map[string]manager.GameweekHistory
	upserted []manager.GameweekHistory
}

func newFakeManagerRepo() *fakeManagerRepo {
	return &fakeManagerRepo{picks: map[string][]manager.Pick{}, history: map[string]manager.GameweekHistory{}}
}

func historyKey(managerID string, gameweekID int) string {
	return managerID + ":" + string(rune(gameweekID))
}

func (f *fakeManagerRepo) GetTrackedManagerIDs(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeManagerRepo) UpsertManagers(ctx context.Context, items []manager.Manager) error {
	return nil
}
func (f *fakeManagerRepo) UpsertPicks(ctx context.Context, managerID string, gameweekID int, picks []manager.Pick) error {
	f.picks[historyKey(managerID, gameweekID)] = picks
	return nil
}
func (f *fakeManagerRepo) GetPicks(ctx context.Context, managerID string, gameweekID int) ([]manager.Pick, error) {
	return f.picks[historyKey(managerID, gameweekID)], nil
}
func (f *fakeManagerRepo) UpdateAutoSubFlags(ctx context.Context, managerID string, gameweekID int, picks []manager.Pick) error {
	return nil
}
func (f *fakeManagerRepo) UpsertTransfers(ctx context.Context, managerID string, gameweekID int, items []manager.Transfer) error {
	return nil
}
func (f *fakeManagerRepo) ListTransfers(ctx context.Context, managerID string, gameweekID int) ([]manager.Transfer, error) {
	return nil, nil
}
func (f *fakeManagerRepo) GetHistory(ctx context.Context, managerID string, gameweekID int) (manager.GameweekHistory, bool, error) {
	h, ok := f.history[historyKey(managerID, gameweekID)]
	return h, ok, nil
}
func (f *fakeManagerRepo) GetPreviousHistory(ctx context.Context, managerID string, gameweekID int) (manager.GameweekHistory, bool, error) {
	h, ok := f.history[historyKey(managerID, gameweekID-1)]
	return h, ok, nil
}
func (f *fakeManagerRepo) UpsertHistory(ctx context.Context, items []manager.GameweekHistory) error {
	f.upserted = append(f.upserted, items...)
	for _, it := range items {
		f.history[historyKey(it.ManagerID, it.GameweekID)] = it
	}
	return nil
}
func (f *fakeManagerRepo) UpsertHistoryPreservingBaseline(ctx context.Context, items []manager.GameweekHistory) error {
	f.upserted = append(f.upserted, items...)
	for _, it := range items {
		f.history[historyKey(it.ManagerID, it.GameweekID)] = it
	}
	return nil
}

type fakeLeagueRepo struct {
	members          []league.Member
	previousStandings []league.Standing
	replaced         []league.Standing
}

func (f *fakeLeagueRepo) List(ctx context.Context) ([]league.MiniLeague, error) { return nil, nil }
func (f *fakeLeagueRepo) GetByID(ctx context.Context, leagueID string) (league.MiniLeague, bool, error) {
	return league.MiniLeague{}, false, nil
}
func (f *fakeLeagueRepo) ListMembers(ctx context.Context, leagueID string) ([]league.Member, error) {
	return f.members, nil
}
func (f *fakeLeagueRepo) ListAllMemberManagerIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (f *fakeLeagueRepo) ReplaceStandings(ctx context.Context, leagueID string, gameweekID int, rows []league.Standing) error {
	f.replaced = rows
	return nil
}
func (f *fakeLeagueRepo) ListStandings(ctx context.Context, leagueID string, gameweekID int) ([]league.Standing, error) {
	return f.previousStandings, nil
}
func (f *fakeLeagueRepo) ReplacePlayerWhitelist(ctx context.Context, leagueID string, gameweekID int, playerIDs []string) error {
	return nil
}

func TestCalculateMiniLeagueRanks_PreservesOrderingBeforeAnyFixtureStarted(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	leagueRepo := &fakeLeagueRepo{members: []league.Member{{LeagueID: "L1", ManagerID: "1"}}}
	store := usecase.Store{Manager: managerRepo, League: leagueRepo}
	svc := usecase.NewManagerRefresherService(store, nil, usecase.ManagerRefresherConfig{}, nil)

	err := svc.CalculateMiniLeagueRanks(context.Background(), "L1", 10, false)
	require.NoError(t, err)
	assert.Nil(t, leagueRepo.replaced)
}

func TestCalculateMiniLeagueRanks_TiedManagersShareLowerRank(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	managerRepo.history[historyKey("1", 10)] = manager.GameweekHistory{ManagerID: "1", GameweekID: 10, TotalPoints: 100}
	managerRepo.history[historyKey("2", 10)] = manager.GameweekHistory{ManagerID: "2", GameweekID: 10, TotalPoints: 100}
	managerRepo.history[historyKey("3", 10)] = manager.GameweekHistory{ManagerID: "3", GameweekID: 10, TotalPoints: 95}

	leagueRepo := &fakeLeagueRepo{members: []league.Member{
		{LeagueID: "L1", ManagerID: "1"},
		{LeagueID: "L1", ManagerID: "2"},
		{LeagueID: "L1", ManagerID: "3"},
	}}
	store := usecase.Store{Manager: managerRepo, League: leagueRepo}
	svc := usecase.NewManagerRefresherService(store, nil, usecase.ManagerRefresherConfig{}, nil)

	err := svc.CalculateMiniLeagueRanks(context.Background(), "L1", 10, true)
	require.NoError(t, err)
	require.Len(t, leagueRepo.replaced, 3)

	byManager := map[string]league.Standing{}
	for _, row := range leagueRepo.replaced {
		byManager[row.ManagerID] = row
	}
	assert.Equal(t, 1, byManager["1"].Rank)
	assert.Equal(t, 1, byManager["2"].Rank)
	assert.Equal(t, 3, byManager["3"].Rank)
}

func TestRefreshManagerPointsLiveOnly_PreservesBaselineColumn(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	baseline := 50
	managerRepo.history[historyKey("1", 10)] = manager.GameweekHistory{
		ManagerID: "1", GameweekID: 10, BaselineTotalPoints: &baseline,
	}
	managerRepo.picks[historyKey("1", 10)] = []manager.Pick{
		{ManagerID: "1", GameweekID: 10, Position: 1, PlayerID: "100", Multiplier: 1},
	}

	statsRepo := &fakePlayerStatsRepo{existing: []playerstats.GameweekStats{
		{PlayerID: "100", GameweekID: 10, FixtureID: "F1", TotalPoints: 6, BonusStatus: playerstats.BonusConfirmed, MatchFinished: true},
	}}

	store := usecase.Store{Manager: managerRepo, PlayerStats: statsRepo}
	svc := usecase.NewManagerRefresherService(store, nil, usecase.ManagerRefresherConfig{}, nil)

	ok, err := svc.RefreshManagerPointsLiveOnly(context.Background(), usecase.RefreshManagerPointsLiveOnlyInput{
		ManagerIDs: []string{"1"},
		GameweekID: 10,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	updated := managerRepo.history[historyKey("1", 10)]
	require.NotNil(t, updated.BaselineTotalPoints)
	assert.Equal(t, 50, *updated.BaselineTotalPoints)
	assert.Equal(t, 6, updated.GameweekPoints)
	assert.Equal(t, 56, updated.TotalPoints)
}
