package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second
)

// HTTPConfig configures the HTTP meta client.
type HTTPConfig struct {
	// BaseURL serves GET {BaseURL}/meta/{format} as a JSON Snapshot.
	BaseURL string

	// CacheTTL is how long a fetched snapshot is served from cache.
	CacheTTL time.Duration

	// RequestTimeout is the per-request timeout.
	RequestTimeout time.Duration

	// RateInterval is the minimum interval between requests.
	RateInterval time.Duration

	// InitialBackoff is the first retry delay; it doubles up to 16s.
	InitialBackoff time.Duration
}

// DefaultHTTPConfig returns default configuration.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		CacheTTL:       4 * time.Hour,
		RequestTimeout: 30 * time.Second,
		RateInterval:   time.Second,
		InitialBackoff: initialBackoff,
	}
}

// HTTPClient fetches meta snapshots from a remote service with rate
// limiting, retries and a per-format cache.
type HTTPClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	cacheTTL    time.Duration
	backoff     time.Duration
	logger      *slog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	snapshot  *Snapshot
	expiresAt time.Time
}

// NewHTTPClient creates a client. A nil config uses defaults but BaseURL
// must still be set.
func NewHTTPClient(config *HTTPConfig, logger *slog.Logger) (*HTTPClient, error) {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("meta base URL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid meta base URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	interval := config.RateInterval
	if interval <= 0 {
		interval = time.Second
	}
	backoff := config.InitialBackoff
	if backoff <= 0 {
		backoff = initialBackoff
	}
	return &HTTPClient{
		httpClient:  &http.Client{Timeout: config.RequestTimeout},
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Every(interval), 1),
		cacheTTL:    config.CacheTTL,
		backoff:     backoff,
		logger:      logger,
		cache:       make(map[string]cacheEntry),
	}, nil
}

// CurrentTopArchetypes implements Provider.
func (c *HTTPClient) CurrentTopArchetypes(ctx context.Context, format string) (*Snapshot, error) {
	format = strings.ToLower(format)
	if snap := c.getFromCache(format); snap != nil {
		return snap, nil
	}

	var snap Snapshot
	if err := c.doRequest(ctx, c.baseURL+"/meta/"+url.PathEscape(format), &snap); err != nil {
		return nil, fmt.Errorf("fetch meta for %s: %w", format, err)
	}
	if err := snap.Prepare(format); err != nil {
		return nil, fmt.Errorf("meta for %s: %w", format, err)
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}

	c.setCache(format, &snap)
	return &snap, nil
}

// ClearCache drops all cached snapshots.
func (c *HTTPClient) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *HTTPClient) getFromCache(format string) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[format]
	if !ok || time.Now().After(e.expiresAt) {
		return nil
	}
	return e.snapshot
}

func (c *HTTPClient) setCache(format string, snap *Snapshot) {
	if c.cacheTTL <= 0 {
		return
	}
	c.mu.Lock()
	c.cache[format] = cacheEntry{snapshot: snap, expiresAt: time.Now().Add(c.cacheTTL)}
	c.mu.Unlock()
}

// doRequest performs a GET with rate limiting and retries on network
// errors, 429 and 5xx responses.
func (c *HTTPClient) doRequest(ctx context.Context, target string, result any) error {
	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		retry, wait, err := c.do(req, result)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == maxRetries {
			break
		}

		if wait <= 0 {
			wait = backoff
		}
		c.logger.Warn("meta request failed, retrying", "url", target, "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		backoff = min(backoff*2, maxBackoff)
	}
	return lastErr
}

// do executes one request. retry reports whether the failure is transient;
// wait is a server-requested delay, zero when none was given.
func (c *HTTPClient) do(req *http.Request, result any) (retry bool, wait time.Duration, err error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, 0, fmt.Errorf("read response body: %w", err)
		}
		if err := json.Unmarshal(body, result); err != nil {
			return false, 0, fmt.Errorf("parse JSON response: %w", err)
		}
		return false, 0, nil

	case resp.StatusCode == http.StatusNotFound:
		return false, 0, ErrNoSnapshot

	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			wait = time.Duration(secs) * time.Second
		}
		return true, wait, fmt.Errorf("rate limited (HTTP 429)")

	case resp.StatusCode >= 500:
		return true, 0, fmt.Errorf("server error (HTTP %d)", resp.StatusCode)

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, 0, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
