package fplapi

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiter enforces's dual rate-limit contract: a sliding
// window of at most R requests per 60s (golang.org/x/time/rate, the same
// library albapepper-scoracle-data's sportmonks and bdl clients use for
// their per-upstream rate limiters) composed with an explicit minimum
// spacing between requests, jittered +/-25% per the original Python
// client's _wait_for_rate_limit so repeated callers do not phase-lock with
// upstream.
type limiter struct {
	windowed *rate.Limiter

	mu          sync.Mutex
	minInterval time.Duration
	lastAt      time.Time
}

func newLimiter(requestsPerMinute int, minInterval time.Duration) *limiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	return &limiter{
		windowed:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		minInterval: minInterval,
	}
}

func (l *limiter) Wait(ctx context.Context) error {
	if err := l.windowed.Wait(ctx); err != nil {
		return err
	}
	return l.waitMinInterval(ctx)
}

func (l *limiter) waitMinInterval(ctx context.Context) error {
	if l.minInterval <= 0 {
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if !l.lastAt.IsZero() {
		elapsed := now.Sub(l.lastAt)
		jittered := jitter(l.minInterval)
		if elapsed < jittered {
			wait = jittered - elapsed
		}
	}
	l.lastAt = now.Add(wait)
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// jitter returns d scaled by a uniform random factor in [0.75, 1.25].
func jitter(d time.Duration) time.Duration {
	factor := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(d) * factor)
}
