package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/riskibarqy/fantasy-league/internal/app"
	"github.com/riskibarqy/fantasy-league/internal/config"
	"github.com/riskibarqy/fantasy-league/internal/observability"
	"github.com/riskibarqy/fantasy-league/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger := logging.NewJSON(cfg.ZapLogLevel())
	logger, betterStackShutdown, err := observability.InitBetterStackLogger(cfg, logger)
	if err != nil {
		slogLogger.Error("init betterstack logger", "error", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	uptraceShutdown, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	pyroscopeShutdown, err := observability.InitPyroscope(cfg, slogLogger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	pprofServer, err := observability.StartPprofServer(cfg, slogLogger)
	if err != nil {
		logger.Error("start pprof server", "error", err)
		os.Exit(1)
	}

	built, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("build orchestrator", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("orchestrator starting",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"env", cfg.AppEnv,
	)

	var loops sync.WaitGroup
	loops.Add(3)
	go func() {
		defer loops.Done()
		built.Orchestrator.RunFastLoop(ctx)
	}()
	go func() {
		defer loops.Done()
		built.Orchestrator.RunSlowLoop(ctx)
	}()
	go func() {
		defer loops.Done()
		built.Orchestrator.RunPredictionsLoop(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, waiting for loops to drain")
	loops.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := observability.StopPprofServer(pprofServer, slogLogger, 5*time.Second); err != nil {
		logger.Error("stop pprof server failed", "error", err)
	}
	if err := pyroscopeShutdown(); err != nil {
		logger.Error("stop pyroscope failed", "error", err)
	}
	if err := uptraceShutdown(shutdownCtx); err != nil {
		logger.Error("stop uptrace failed", "error", err)
	}
	if err := built.Close(); err != nil {
		logger.Error("close database failed", "error", err)
	}
	if err := betterStackShutdown(shutdownCtx); err != nil {
		logger.Error("stop betterstack logger failed", "error", err)
	}

	logger.Info("orchestrator stopped")
}
