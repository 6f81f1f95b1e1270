package app

import (
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-league/internal/config"
)

func TestResolveDailyPriceWindow(t *testing.T) {
	cfg := config.Config{
		PriceChangeTime:           "02:30",
		PriceChangeWindowDuration: 45 * time.Minute,
		PriceWindowTimezone:       "Europe/London",
	}

	at := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	window, err := resolveDailyPriceWindow(cfg, at)
	if err != nil {
		t.Fatalf("resolve price window: %v", err)
	}

	loc, _ := time.LoadLocation("Europe/London")
	wantStart := time.Date(2026, time.March, 15, 2, 30, 0, 0, loc)
	if !window.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", window.Start, wantStart)
	}
	if !window.End.Equal(wantStart.Add(45 * time.Minute)) {
		t.Fatalf("end = %v, want %v", window.End, wantStart.Add(45*time.Minute))
	}
}

func TestResolveDailyPriceWindow_InvalidTimezone(t *testing.T) {
	cfg := config.Config{
		PriceChangeTime:           "02:00",
		PriceChangeWindowDuration: time.Hour,
		PriceWindowTimezone:       "Not/ARealZone",
	}

	if _, err := resolveDailyPriceWindow(cfg, time.Now()); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestResolveDailyPriceWindow_InvalidTime(t *testing.T) {
	cfg := config.Config{
		PriceChangeTime:           "not-a-time",
		PriceChangeWindowDuration: time.Hour,
		PriceWindowTimezone:       "UTC",
	}

	if _, err := resolveDailyPriceWindow(cfg, time.Now()); err == nil {
		t.Fatal("expected error for invalid price change time")
	}
}
