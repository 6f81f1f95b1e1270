package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_BetterStackRequiresEndpointWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when BETTERSTACK_ENABLED=true without BETTERSTACK_ENDPOINT")
	}
}

func TestLoad_BetterStackConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "s1765114.eu-fsn-3.betterstackdata.com")
	t.Setenv("BETTERSTACK_TOKEN", "token-123")
	t.Setenv("BETTERSTACK_TIMEOUT", "4s")
	t.Setenv("BETTERSTACK_MIN_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.BetterStackEnabled {
		t.Fatalf("expected BetterStackEnabled=true")
	}
	if cfg.BetterStackEndpoint != "s1765114.eu-fsn-3.betterstackdata.com" {
		t.Fatalf("unexpected BetterStackEndpoint: %q", cfg.BetterStackEndpoint)
	}
	if cfg.BetterStackToken != "token-123" {
		t.Fatalf("unexpected BetterStackToken")
	}
	if cfg.BetterStackTimeout != 4*time.Second {
		t.Fatalf("unexpected BetterStackTimeout: %s", cfg.BetterStackTimeout)
	}
	if cfg.BetterStackMinLevel.String() != "warn" {
		t.Fatalf("unexpected BetterStackMinLevel: %s", cfg.BetterStackMinLevel.String())
	}
}

func TestLoad_UptraceLogsEnabledParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("UPTRACE_LOGS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.UptraceLogsEnabled {
		t.Fatalf("expected UptraceLogsEnabled=true")
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_SERVICE_NAME", "fpl-refresh-orchestrator-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "fpl-refresh-orchestrator-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_DatabaseDisablePreparedBinaryResultParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("defaults false", func(t *testing.T) {
		t.Setenv("DATABASE_DISABLE_PREPARED_BINARY_RESULT", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.DatabaseDisablePreparedBinaryResult {
			t.Fatalf("expected DatabaseDisablePreparedBinaryResult=false by default")
		}
	})

	t.Run("yes enables it", func(t *testing.T) {
		t.Setenv("DATABASE_DISABLE_PREPARED_BINARY_RESULT", "yes")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.DatabaseDisablePreparedBinaryResult {
			t.Fatalf("expected DatabaseDisablePreparedBinaryResult=true")
		}
	})
}

func TestLoad_CacheEnabledDefaultsTrue(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("CACHE_ENABLED", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.CacheEnabled {
		t.Fatalf("expected cache enabled by default")
	}
	if cfg.BootstrapCacheTTL != 300*time.Second {
		t.Fatalf("unexpected default bootstrap cache ttl: %s", cfg.BootstrapCacheTTL)
	}
}

func TestLoad_UpstreamCircuitBreakerDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.UpstreamCircuitEnabled {
		t.Fatalf("expected upstream circuit breaker enabled by default")
	}
	if cfg.UpstreamCircuitFailureThreshold != 5 {
		t.Fatalf("unexpected default failure threshold: %d", cfg.UpstreamCircuitFailureThreshold)
	}
	if cfg.UpstreamCircuitOpenTimeout != 15*time.Second {
		t.Fatalf("unexpected default open timeout: %s", cfg.UpstreamCircuitOpenTimeout)
	}
	if cfg.UpstreamCircuitHalfOpenMaxReq != 2 {
		t.Fatalf("unexpected default half-open max requests: %d", cfg.UpstreamCircuitHalfOpenMaxReq)
	}
}

func TestLoad_RequiredManagerIDsFallsBackThroughAliases(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("REQUIRED_MANAGER_IDS wins", func(t *testing.T) {
		t.Setenv("REQUIRED_MANAGER_IDS", " 111, 222 ,333")
		t.Setenv("REQUIRED_MANAGER_ID", "999")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.RequiredManagerIDs) != 3 || cfg.RequiredManagerIDs[0] != "111" {
			t.Fatalf("unexpected RequiredManagerIDs: %+v", cfg.RequiredManagerIDs)
		}
	})

	t.Run("falls back to singular alias", func(t *testing.T) {
		t.Setenv("REQUIRED_MANAGER_IDS", "")
		t.Setenv("REQUIRED_MANAGER_ID", "999")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.RequiredManagerIDs) != 1 || cfg.RequiredManagerIDs[0] != "999" {
			t.Fatalf("unexpected RequiredManagerIDs: %+v", cfg.RequiredManagerIDs)
		}
	})
}

func TestLoad_PriceWindowDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PriceChangeTime != "02:00" {
		t.Fatalf("unexpected default price change time: %q", cfg.PriceChangeTime)
	}
	if cfg.PriceWindowTimezone != "Europe/London" {
		t.Fatalf("unexpected default price window timezone: %q", cfg.PriceWindowTimezone)
	}
	if cfg.PriceChangeWindowDuration != 30*time.Minute {
		t.Fatalf("unexpected default price change window duration: %s", cfg.PriceChangeWindowDuration)
	}
}

func TestLoad_ZapLogLevel(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ZapLogLevel().String() != "warn" {
		t.Fatalf("unexpected zap log level: %s", cfg.ZapLogLevel())
	}
}
