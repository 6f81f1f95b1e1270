package usecase

import (
	"github.com/riskibarqy/fantasy-league/internal/domain/aggregate"
	"github.com/riskibarqy/fantasy-league/internal/domain/baseline"
	"github.com/riskibarqy/fantasy-league/internal/domain/fixture"
	"github.com/riskibarqy/fantasy-league/internal/domain/gameweek"
	"github.com/riskibarqy/fantasy-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/fantasy-league/internal/domain/league"
	"github.com/riskibarqy/fantasy-league/internal/domain/manager"
	"github.com/riskibarqy/fantasy-league/internal/domain/player"
	"github.com/riskibarqy/fantasy-league/internal/domain/playerstats"
	"github.com/riskibarqy/fantasy-league/internal/domain/team"
)

// Store composes the per-aggregate repositories into the single abstract
// persistence boundary the orchestrator and its refresher services depend
// on. It has no implementation of its own; it exists so usecase
// constructors can depend on one bundle of interfaces instead of ten.
type Store struct {
	Gameweek     gameweek.Repository
	Team         team.Repository
	Player       player.Repository
	Fixture      fixture.Repository
	PlayerStats  playerstats.Repository
	Manager      manager.Repository
	League       league.Repository
	Baseline     baseline.Repository
	JobScheduler jobscheduler.Repository
	// Aggregate is optional: callers that have no materialized-aggregate
	// layer to refresh (e.g. tests) leave it nil and the orchestrator skips
	// the refresh step.
	Aggregate aggregate.Repository
}
