package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/cache"
)

// ClientConfig holds the HTTP settings shared by every provider.
type ClientConfig struct {
	Timeout    time.Duration
	RetryCount int
	Backoff    time.Duration
	CacheTTL   time.Duration
	UserAgent  string
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:    15 * time.Second,
		RetryCount: 3,
		Backoff:    time.Second,
		CacheTTL:   20 * time.Second,
		UserAgent:  "defiwatch/1.0",
	}
}

// maxBackoff is the maximum backoff duration for retries
const maxBackoff = 30 * time.Second

// maxBodySize bounds provider responses; the DeFiLlama pool list is the
// largest at a few MB.
const maxBodySize = 32 << 20

// Client fetches JSON documents with retry and an optional response cache.
type Client struct {
	httpClient *http.Client
	config     ClientConfig
	cache      *cache.JSON
	logger     *slog.Logger
}

// NewClient creates a client. store may be nil to disable caching.
func NewClient(config ClientConfig, store cache.Store, logger *slog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger,
	}
	if store != nil && config.CacheTTL > 0 {
		c.cache = cache.NewJSON(store)
	}
	return c
}

// calculateBackoff returns base, 2*base, 4*base... capped at maxBackoff.
func calculateBackoff(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempt <= 1 {
		return base
	}

	d := base
	for i := 1; i < attempt && i < 6; i++ {
		d *= 2
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// GetJSON decodes the document at url into out. When cacheKey is set a
// fresh cached copy is served instead of calling the provider.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, cacheKey string, out interface{}) error {
	if c.cache != nil && cacheKey != "" {
		err := c.cache.Get(ctx, cacheKey, out)
		if err == nil {
			return nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheExpired) {
			c.logger.Warn("feed cache read failed", "key", cacheKey, "error", err)
		}
	}

	if err := c.getWithRetry(ctx, url, header, out); err != nil {
		return err
	}

	if c.cache != nil && cacheKey != "" {
		if err := c.cache.Set(ctx, cacheKey, out, c.config.CacheTTL); err != nil {
			c.logger.Warn("feed cache write failed", "key", cacheKey, "error", err)
		}
	}
	return nil
}

func (c *Client) getWithRetry(ctx context.Context, url string, header http.Header, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(attempt, c.config.Backoff)):
			}
		}

		lastErr = c.get(ctx, url, header, out)
		if lastErr == nil {
			return nil
		}

		// Don't retry on context errors
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Client errors and undecodable bodies will not improve on retry
		if isPermanent(lastErr) {
			return lastErr
		}

		c.logger.Debug("feed request failed, retrying",
			"url", redact(url),
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	return fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}

func (c *Client) get(ctx context.Context, url string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request %s: %w", redact(url), stripURL(err))
	}

	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request %s: %w", redact(url), stripURL(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			URL:        req.URL.Host + req.URL.Path,
			Body:       truncate(string(body), 256),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return nil
}

// redact drops the query string, which carries API keys for some
// providers.
func redact(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil {
		return "invalid url"
	}
	return u.Host + u.Path
}

// stripURL unwraps *url.Error, whose message repeats the full request
// URL including its query string.
func stripURL(err error) error {
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
