// Command diagnostics prints the orchestrator's current state detection
// and the next scheduled cadence without running the fast/slow/predictions
// loops. Grounded on cmd/migration's manual-flag CLI shape: a single
// one-shot action driven by flags and environment, no daemon loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/riskibarqy/fantasy-league/internal/app"
	"github.com/riskibarqy/fantasy-league/internal/config"
	"github.com/riskibarqy/fantasy-league/internal/platform/logging"
)

func main() {
	timeout := flag.Duration("timeout", 10*time.Second, "max time to spend detecting state")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSON(cfg.ZapLogLevel())

	built, err := app.Build(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build orchestrator: %v\n", err)
		os.Exit(1)
	}
	defer built.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	detection, cadence, err := built.Orchestrator.InspectState(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect state: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("state: %s\n", detection.State)
	if detection.LiveGameweekID != 0 {
		fmt.Printf("live_gameweek_id: %d\n", detection.LiveGameweekID)
	}
	if detection.TargetGameweekID != 0 {
		fmt.Printf("target_gameweek_id: %d\n", detection.TargetGameweekID)
	}
	fmt.Printf("next_fast_loop_sleep: %s\n", cadence)
}
