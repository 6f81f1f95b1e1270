package app

import (
	"context"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/fantasy-league/external/fplapi"
	"github.com/riskibarqy/fantasy-league/internal/config"
	cacherepo "github.com/riskibarqy/fantasy-league/internal/infrastructure/repository/cache"
	postgresrepo "github.com/riskibarqy/fantasy-league/internal/infrastructure/repository/postgres"
	basecache "github.com/riskibarqy/fantasy-league/internal/platform/cache"
	"github.com/riskibarqy/fantasy-league/internal/platform/logging"
	"github.com/riskibarqy/fantasy-league/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-league/internal/usecase"
)

// Built is everything cmd/orchestrator and cmd/diagnostics need: the fully
// wired orchestrator, the upstream client it drives, and a Close that
// releases the database connection.
type Built struct {
	Orchestrator *usecase.OrchestratorService
	Client       *fplapi.Client
	Store        usecase.Store
	Close        func() error
}

// Build opens the database, wires the ten repositories into a Store
// (optionally cache-decorated), constructs the rate-limited upstream
// client, and assembles the refresher services into the orchestrator.
func Build(cfg config.Config, logger *logging.Logger) (*Built, error) {
	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DatabaseURL, cfg.DatabaseDisablePreparedBinaryResult),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := usecase.Store{
		Gameweek:     postgresrepo.NewGameweekRepository(db),
		Team:         postgresrepo.NewTeamRepository(db),
		Player:       postgresrepo.NewPlayerRepository(db),
		Fixture:      postgresrepo.NewFixtureRepository(db),
		PlayerStats:  postgresrepo.NewPlayerStatsRepository(db),
		Manager:      postgresrepo.NewManagerRepository(db),
		League:       postgresrepo.NewLeagueRepository(db),
		Baseline:     postgresrepo.NewBaselineRepository(db),
		JobScheduler: postgresrepo.NewJobSchedulerRepository(db),
		Aggregate:    postgresrepo.NewAggregateRepository(db),
	}

	if cfg.CacheEnabled {
		cacheStore := basecache.NewStore(cfg.BootstrapCacheTTL)
		store.Gameweek = cacherepo.NewGameweekRepository(store.Gameweek, cacheStore)
		store.Team = cacherepo.NewTeamRepository(store.Team, cacheStore)
		store.Player = cacherepo.NewPlayerRepository(store.Player, cacheStore)
		store.League = cacherepo.NewLeagueRepository(store.League, cacheStore)
	}

	client := fplapi.NewClient(fplapi.ClientConfig{
		MaxRequestsPerMinute: cfg.MaxRequestsPerMinute,
		MinRequestInterval:   cfg.MinRequestInterval,
		MaxRetries:           cfg.MaxRetries,
		RetryBackoffBase:     cfg.RetryBackoffBase,
		MaxRetryDelay:        cfg.MaxRetryDelay,
		BootstrapCacheTTL:    cfg.BootstrapCacheTTL,
		Logger:               logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.UpstreamCircuitEnabled,
			FailureThreshold: cfg.UpstreamCircuitFailureThreshold,
			OpenTimeout:      cfg.UpstreamCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.UpstreamCircuitHalfOpenMaxReq,
		},
	})

	playerSvc := usecase.NewPlayerRefresherService(store, client, usecase.PlayerRefresherConfig{
		BatchSize: cfg.ManagerPointsBatchSize,
	}, logger)

	managerSvc := usecase.NewManagerRefresherService(store, client, usecase.ManagerRefresherConfig{
		PickBatchSize:    cfg.ManagerPointsBatchSize,
		PickSleepBetween: cfg.ManagerPointsBatchSleepSeconds,
	}, logger)

	baselineSvc := usecase.NewBaselineCaptureService(store, usecase.BaselineCaptureConfig{}, logger)

	priceWindow, err := resolveDailyPriceWindow(cfg, time.Now())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resolve price window: %w", err)
	}

	orchestrator := usecase.NewOrchestratorService(store, client, playerSvc, managerSvc, baselineSvc, usecase.OrchestratorConfig{
		KickoffWindowMinutes:    cfg.KickoffWindowMinutes,
		MaxIdleSleepSeconds:     cfg.MaxIdleSleepSeconds,
		LiveStandingsInterval:   cfg.LiveStandingsInFastInterval,
		ForceRefreshInterval:    cfg.FullRefreshIntervalLive,
		RankMonitorInterval:     cfg.RankMonitorIntervalSeconds,
		PredictionsLoopInterval: cfg.PredictionsLoopInterval,
		DeadlineSettleSeconds:   cfg.PostDeadlineSettleSeconds,
		DeadlineBatchSize:       cfg.DeadlineBatchSize,
		DeadlineBatchSleep:      cfg.DeadlineBatchSleepSeconds,
		RequiredManagerIDs:      cfg.RequiredManagerIDs,
		SampleManagerID:         cfg.SampleManagerID,
		PriceWindow:             priceWindow,
		PriceWindowCooldown:     time.Duration(cfg.PriceWindowCooldownMinutes) * time.Minute,
	}, logger)

	return &Built{
		Orchestrator: orchestrator,
		Client:       client,
		Store:        store,
		Close:        db.Close,
	}, nil
}

// resolveDailyPriceWindow turns the configured PRICE_CHANGE_TIME wall-clock
// and window duration into absolute instants for at's calendar day in
// PriceWindowTimezone. Resolved once at startup: a process that stays up
// across midnight keeps using the window computed for the day it booted, a
// known limitation left for a future restart-aware revision.
func resolveDailyPriceWindow(cfg config.Config, at time.Time) (usecase.PriceWindow, error) {
	loc, err := time.LoadLocation(cfg.PriceWindowTimezone)
	if err != nil {
		return usecase.PriceWindow{}, fmt.Errorf("load location %q: %w", cfg.PriceWindowTimezone, err)
	}

	var hour, minute int
	if _, err := fmt.Sscanf(cfg.PriceChangeTime, "%d:%d", &hour, &minute); err != nil {
		return usecase.PriceWindow{}, fmt.Errorf("parse price change time %q: %w", cfg.PriceChangeTime, err)
	}

	local := at.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	end := start.Add(cfg.PriceChangeWindowDuration)

	return usecase.PriceWindow{Start: start, End: end}, nil
}
