// Package fplapi implements the rate-limited, retrying upstream client for
// the Fantasy Premier League API.
package fplapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/fantasy-league/internal/platform/cache"
	"github.com/riskibarqy/fantasy-league/internal/platform/logging"
	"github.com/riskibarqy/fantasy-league/internal/platform/resilience"
)

const (
	defaultBaseURL   = "https://fantasy.premierleague.com/api"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultReferer   = "https://fantasy.premierleague.com/"
	maxBodyBytes     = 6 << 20
)

// ClientConfig configures the upstream client.
type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string

	MaxRequestsPerMinute int
	MinRequestInterval   time.Duration

	MaxRetries      int
	RetryBackoffBase time.Duration
	MaxRetryDelay    time.Duration

	BootstrapCacheTTL time.Duration

	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client is the rate-limited, retrying, circuit-broken FPL upstream client.
type Client struct {
	http    *http.Client
	baseURL string

	limiter *limiter
	breaker *resilience.CircuitBreaker
	circuitEnabled bool
	flight  resilience.SingleFlight

	maxRetries       int
	retryBackoffBase time.Duration
	maxRetryDelay    time.Duration

	bootstrapCache *cache.Store
	bootstrapMu    sync.Mutex

	logger *logging.Logger
}

// NewClient builds a Client from cfg, filling unset fields with sensible
// defaults.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	httpClient.Transport = otelhttp.NewTransport(httpClient.Transport)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	requestsPerMinute := cfg.MaxRequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 90
	}
	minInterval := cfg.MinRequestInterval
	if minInterval <= 0 {
		minInterval = 500 * time.Millisecond
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoffBase := cfg.RetryBackoffBase
	if backoffBase <= 0 {
		backoffBase = 1 * time.Second
	}
	maxDelay := cfg.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	bootstrapTTL := cfg.BootstrapCacheTTL
	if bootstrapTTL <= 0 {
		bootstrapTTL = 300 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		http:             httpClient,
		baseURL:          baseURL,
		limiter:          newLimiter(requestsPerMinute, minInterval),
		breaker:          resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled:   breakerCfg.Enabled,
		maxRetries:       maxRetries,
		retryBackoffBase: backoffBase,
		maxRetryDelay:    maxDelay,
		bootstrapCache:   cache.NewStore(bootstrapTTL),
		logger:           logger,
	}
}

func (c *Client) GetBootstrap(ctx context.Context) (Bootstrap, error) {
	v, err := c.bootstrapCache.GetOrLoad(ctx, "bootstrap", func(ctx context.Context) (any, error) {
		var out Bootstrap
		if err := c.doJSON(ctx, "/bootstrap-static/", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return Bootstrap{}, err
	}
	out, _ := v.(Bootstrap)
	return out, nil
}

func (c *Client) GetFixtures(ctx context.Context) ([]Fixture, error) {
	var out []Fixture
	err := c.doJSON(ctx, "/fixtures/", nil, &out)
	return out, err
}

func (c *Client) GetEventLive(ctx context.Context, gameweek int) (EventLive, error) {
	var out EventLive
	err := c.doJSON(ctx, fmt.Sprintf("/event/%d/live/", gameweek), nil, &out)
	return out, err
}

func (c *Client) GetElementSummary(ctx context.Context, playerID int) (ElementSummary, error) {
	var out ElementSummary
	err := c.doJSON(ctx, fmt.Sprintf("/element-summary/%d/", playerID), nil, &out)
	return out, err
}

func (c *Client) GetEntry(ctx context.Context, managerID int) (Entry, error) {
	var out Entry
	err := c.doJSON(ctx, fmt.Sprintf("/entry/%d/", managerID), nil, &out)
	return out, err
}

func (c *Client) GetEntryHistory(ctx context.Context, managerID int) (EntryHistory, error) {
	var out EntryHistory
	err := c.doJSON(ctx, fmt.Sprintf("/entry/%d/history/", managerID), nil, &out)
	return out, err
}

func (c *Client) GetEntryPicks(ctx context.Context, managerID, gameweek int) (EntryPicks, error) {
	var out EntryPicks
	err := c.doJSON(ctx, fmt.Sprintf("/entry/%d/event/%d/picks/", managerID, gameweek), nil, &out)
	return out, err
}

func (c *Client) GetEntryTransfers(ctx context.Context, managerID int) ([]EntryTransfer, error) {
	var out []EntryTransfer
	err := c.doJSON(ctx, fmt.Sprintf("/entry/%d/transfers/", managerID), nil, &out)
	return out, err
}

func (c *Client) GetLeagueStandings(ctx context.Context, leagueID, page int) (LeagueStandings, error) {
	var out LeagueStandings
	query := url.Values{"page_standings": []string{strconv.Itoa(page)}}
	err := c.doJSON(ctx, fmt.Sprintf("/leagues-classic/%d/standings/", leagueID), query, &out)
	return out, err
}

func (c *Client) doJSON(ctx context.Context, path string, query url.Values, dest any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			return fmt.Errorf("fpl upstream is temporarily unavailable: %w", err)
		}
	}

	flightKey := path + "?" + query.Encode()
	v, err, _ := c.flight.Do(flightKey, func() (any, error) {
		return c.executeRequest(ctx, path, query)
	})
	c.recordCircuitResult(err)
	if err != nil {
		return err
	}

	raw, _ := v.([]byte)
	if err := sonic.Unmarshal(raw, dest); err != nil {
		return crerr.Wrapf(err, "decode fpl response path=%s", path)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleepBeforeRetry(ctx, attempt, lastErr); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryAfter, err := c.attempt(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
		if retryAfter > 0 {
			lastErr = retryAfterError{delay: retryAfter, cause: err}
		}
		c.logger.WarnContext(ctx, "fpl upstream request failed, retrying",
			"path", path, "attempt", attempt, "error", err,
			"curl_preview", buildFPLCurlPreview(reqURL))
	}

	kind := errTransient
	if crerr.Is(lastErr, ErrRateLimited) {
		kind = ErrRateLimited
	}
	return nil, fmt.Errorf("%w: exhausted retries path=%s: %v", kind, path, lastErr)
}

func (c *Client) attempt(ctx context.Context, reqURL string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, crerr.Wrap(err, "build fpl request")
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Referer", defaultReferer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: request url=%s: %v", errTransient, reqURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, retryAfter, fmt.Errorf("%w: status=429 url=%s", ErrRateLimited, reqURL)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body url=%s: %v", errTransient, reqURL, err)
	}

	if resp.StatusCode/100 != 2 {
		if isRetryableStatus(resp.StatusCode) {
			return nil, 0, fmt.Errorf("%w: status=%d url=%s body=%s", errTransient, resp.StatusCode, reqURL, truncate(raw, 500))
		}
		return nil, 0, fmt.Errorf("%w: status=%d url=%s body=%s", ErrUpstream, resp.StatusCode, reqURL, truncate(raw, 500))
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") || looksLikeHTML(raw) {
		return nil, 0, fmt.Errorf("%w: html response url=%s (upstream maintenance)", ErrUpstream, reqURL)
	}
	if len(raw) == 0 {
		return nil, 0, fmt.Errorf("%w: empty response url=%s", errTransient, reqURL)
	}

	return raw, 0, nil
}

type retryAfterError struct {
	delay time.Duration
	cause error
}

func (e retryAfterError) Error() string { return e.cause.Error() }
func (e retryAfterError) Unwrap() error { return e.cause }

func (c *Client) sleepBeforeRetry(ctx context.Context, attempt int, lastErr error) error {
	var delay time.Duration
	var raErr retryAfterError
	if crerr.As(lastErr, &raErr) {
		delay = raErr.delay
	} else {
		delay = jitter(backoffDelay(c.retryBackoffBase, c.maxRetryDelay, attempt-1))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay computes exponential backoff: base*2^attempt capped at
// maxDelay.
func backoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 60 * time.Second
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func isRetryable(err error) bool {
	return crerr.Is(err, errTransient) || crerr.Is(err, ErrRateLimited)
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func looksLikeHTML(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(strings.ToLower(trimmed), "<!doctype") || strings.HasPrefix(strings.ToLower(trimmed), "<html")
}

// buildFPLCurlPreview renders a reproducible curl command for a failed
// request so a retry warning can be pasted straight into a terminal.
func buildFPLCurlPreview(reqURL string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("curl -H 'User-Agent: ")
	_, _ = buf.WriteString(defaultUserAgent)
	_, _ = buf.WriteString("' -H 'Referer: ")
	_, _ = buf.WriteString(defaultReferer)
	_, _ = buf.WriteString("' '")
	_, _ = buf.WriteString(reqURL)
	_, _ = buf.WriteString("'")

	return buf.String()
}

func truncate(body []byte, max int) string {
	s := string(body)
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

func (c *Client) recordCircuitResult(err error) {
	if !c.circuitEnabled {
		return
	}
	if err == nil {
		c.breaker.RecordSuccess()
		return
	}
	if isCircuitFailure(err) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}
