package usecase_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fantasy-league/external/fplapi"
	"github.com/riskibarqy/fantasy-league/internal/domain/fixture"
	"github.com/riskibarqy/fantasy-league/internal/domain/gameweek"
	"github.com/riskibarqy/fantasy-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/fantasy-league/internal/domain/team"
	"github.com/riskibarqy/fantasy-league/internal/usecase"
)

type fakeGameweekRepo struct {
	current gameweek.Gameweek
	found   bool
	all     []gameweek.Gameweek
}

func (f *fakeGameweekRepo) Upsert(ctx context.Context, items []gameweek.Gameweek) error { return nil }
func (f *fakeGameweekRepo) GetCurrent(ctx context.Context) (gameweek.Gameweek, bool, error) {
	return f.current, f.found, nil
}
func (f *fakeGameweekRepo) GetByID(ctx context.Context, id int) (gameweek.Gameweek, bool, error) {
	for _, gw := range f.all {
		if gw.ID == id {
			return gw, true, nil
		}
	}
	return gameweek.Gameweek{}, false, nil
}
func (f *fakeGameweekRepo) List(ctx context.Context) ([]gameweek.Gameweek, error) { return f.all, nil }
func (f *fakeGameweekRepo) MarkRanksFinalized(ctx context.Context, id int) error  { return nil }

type fakeTeamRepo struct{}

func (f *fakeTeamRepo) Upsert(ctx context.Context, items []team.Team) error { return nil }
func (f *fakeTeamRepo) List(ctx context.Context) ([]team.Team, error)      { return nil, nil }
func (f *fakeTeamRepo) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	return team.Team{}, false, nil
}

type fakeFixtureRepo struct {
	byGameweek map[int][]fixture.Fixture
}

func (f *fakeFixtureRepo) Upsert(ctx context.Context, items []fixture.Fixture) error { return nil }
func (f *fakeFixtureRepo) ListByGameweek(ctx context.Context, gameweekID int) ([]fixture.Fixture, error) {
	return f.byGameweek[gameweekID], nil
}
func (f *fakeFixtureRepo) GetFirstKickoff(ctx context.Context, gameweekID int) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
func (f *fakeFixtureRepo) GetNextKickoff(ctx context.Context, gameweekID int) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
func (f *fakeFixtureRepo) UpdateScoreboard(ctx context.Context, fixtureID string, homeScore, awayScore *int, minutes int) error {
	return nil
}

type fakeJobSchedulerRepo struct {
	startedGameweek int
	finishSuccess   bool
	finishReason    string
	phases          []jobscheduler.BatchPhase
}

func (f *fakeJobSchedulerRepo) InsertRefreshEvent(ctx context.Context, event jobscheduler.RefreshEvent) error {
	return nil
}
func (f *fakeJobSchedulerRepo) InsertDeadlineBatchStart(ctx context.Context, gameweekID int) (string, error) {
	f.startedGameweek = gameweekID
	return "batch-1", nil
}
func (f *fakeJobSchedulerRepo) UpdateDeadlineBatchFinish(ctx context.Context, id string, success bool, failureReason string, phases []jobscheduler.BatchPhase) error {
	f.finishSuccess = success
	f.finishReason = failureReason
	f.phases = phases
	return nil
}
func (f *fakeJobSchedulerRepo) HasSuccessfulDeadlineBatch(ctx context.Context, gameweekID int) (bool, error) {
	return false, nil
}

// newBootstrapStubServer returns an httptest server serving an empty-but-
// valid bootstrap-static payload, enough for RunDeadlineBatch's phase 1
// bootstrap check to succeed without a real upstream.
func newBootstrapStubServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":[],"teams":[],"elements":[]}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestOrchestrator(t *testing.T, store usecase.Store, cfg usecase.OrchestratorConfig) *usecase.OrchestratorService {
	t.Helper()
	server := newBootstrapStubServer(t)
	client := fplapi.NewClient(fplapi.ClientConfig{BaseURL: server.URL})

	playerSvc := usecase.NewPlayerRefresherService(store, client, usecase.PlayerRefresherConfig{}, nil)
	managerSvc := usecase.NewManagerRefresherService(store, client, usecase.ManagerRefresherConfig{}, nil)
	baselineSvc := usecase.NewBaselineCaptureService(store, usecase.BaselineCaptureConfig{}, nil)

	if cfg.DeadlineSettleSeconds <= 0 {
		cfg.DeadlineSettleSeconds = time.Millisecond
	}
	return usecase.NewOrchestratorService(store, client, playerSvc, managerSvc, baselineSvc, cfg, nil)
}

// TestRunDeadlineBatch_RefusesWhenFixtureStarted verifies
// properties 8/9 (scenario S5): the batch must refuse to write
// history/baselines once any fixture of the target gameweek has started.
func TestRunDeadlineBatch_RefusesWhenFixtureStarted(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	leagueRepo := &fakeLeagueRepo{}
	fixtureRepo := &fakeFixtureRepo{byGameweek: map[int][]fixture.Fixture{
		7: {{ID: "100", GameweekID: 7, Started: true}},
	}}
	jobSchedulerRepo := &fakeJobSchedulerRepo{}

	store := usecase.Store{
		Manager:      managerRepo,
		League:       leagueRepo,
		Fixture:      fixtureRepo,
		JobScheduler: jobSchedulerRepo,
	}
	orchestrator := newTestOrchestrator(t, store, usecase.OrchestratorConfig{})

	run, err := orchestrator.RunDeadlineBatch(context.Background(), 7)
	require.NoError(t, err)

	require.NotNil(t, run.Success)
	assert.False(t, *run.Success)
	assert.Equal(t, "fixtures started", run.FailureReason)
	assert.False(t, jobSchedulerRepo.finishSuccess)
	assert.Equal(t, "fixtures started", jobSchedulerRepo.finishReason)
	assert.Empty(t, managerRepo.upserted, "no history should be written once fixtures have started")

	var sawRefuseGate bool
	for _, p := range jobSchedulerRepo.phases {
		if p.Name == "refuse_if_started" {
			sawRefuseGate = true
			assert.False(t, p.Success)
		}
	}
	assert.True(t, sawRefuseGate, "expected a refuse_if_started phase to be recorded")
}

// TestRunDeadlineBatch_SucceedsWhenNoFixtureStarted exercises the full
// nine-phase happy path by confirming every recorded phase succeeded and
// the batch finish is marked successful.
func TestRunDeadlineBatch_SucceedsWhenNoFixtureStarted(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	leagueRepo := &fakeLeagueRepo{}
	fixtureRepo := &fakeFixtureRepo{byGameweek: map[int][]fixture.Fixture{
		8: {{ID: "200", GameweekID: 8, Started: false}},
	}}
	jobSchedulerRepo := &fakeJobSchedulerRepo{}

	store := usecase.Store{
		Manager:      managerRepo,
		League:       leagueRepo,
		Fixture:      fixtureRepo,
		JobScheduler: jobSchedulerRepo,
	}
	orchestrator := newTestOrchestrator(t, store, usecase.OrchestratorConfig{})

	run, err := orchestrator.RunDeadlineBatch(context.Background(), 8)
	require.NoError(t, err)

	require.NotNil(t, run.Success)
	assert.True(t, *run.Success)
	assert.Empty(t, run.FailureReason)
	assert.True(t, jobSchedulerRepo.finishSuccess)
	assert.Equal(t, 8, jobSchedulerRepo.startedGameweek)

	expectedPhases := []string{
		"bootstrap_check", "settle", "picks_transfers", "refuse_if_started",
		"seed_history", "baselines", "whitelist", "aggregates",
	}
	require.Len(t, jobSchedulerRepo.phases, len(expectedPhases))
	for i, name := range expectedPhases {
		assert.Equal(t, name, jobSchedulerRepo.phases[i].Name)
		assert.True(t, jobSchedulerRepo.phases[i].Success, "phase %s should succeed", name)
	}
}

func TestRunFastCycle_DispatchesByDetectedState(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	leagueRepo := &fakeLeagueRepo{}
	fixtureRepo := &fakeFixtureRepo{byGameweek: map[int][]fixture.Fixture{}}
	statsRepo := &fakePlayerStatsRepo{}
	jobSchedulerRepo := &fakeJobSchedulerRepo{}
	gameweekRepo := &fakeGameweekRepo{found: false}

	store := usecase.Store{
		Manager:      managerRepo,
		League:       leagueRepo,
		Fixture:      fixtureRepo,
		PlayerStats:  statsRepo,
		JobScheduler: jobSchedulerRepo,
		Gameweek:     gameweekRepo,
		Team:         &fakeTeamRepo{},
		Player:       &fakePlayerRepo{},
	}
	orchestrator := newTestOrchestrator(t, store, usecase.OrchestratorConfig{})

	result, err := orchestrator.RunFastCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usecase.StateOutsideGameweek, result.State)
	assert.Greater(t, result.Sleep, time.Duration(0))
}

func TestInspectState_MatchesWhatFastCycleWouldDo(t *testing.T) {
	managerRepo := newFakeManagerRepo()
	leagueRepo := &fakeLeagueRepo{}
	fixtureRepo := &fakeFixtureRepo{byGameweek: map[int][]fixture.Fixture{}}
	statsRepo := &fakePlayerStatsRepo{}
	jobSchedulerRepo := &fakeJobSchedulerRepo{}
	gameweekRepo := &fakeGameweekRepo{found: false}

	store := usecase.Store{
		Manager:      managerRepo,
		League:       leagueRepo,
		Fixture:      fixtureRepo,
		PlayerStats:  statsRepo,
		JobScheduler: jobSchedulerRepo,
		Gameweek:     gameweekRepo,
		Team:         &fakeTeamRepo{},
		Player:       &fakePlayerRepo{},
	}
	orchestrator := newTestOrchestrator(t, store, usecase.OrchestratorConfig{})

	detection, cadence, err := orchestrator.InspectState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usecase.StateOutsideGameweek, detection.State)
	assert.Greater(t, cadence, time.Duration(0))
}
