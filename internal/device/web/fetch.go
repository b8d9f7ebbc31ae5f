// Package web implements the network collaborators over HTTP.
package web

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited is returned when a request would exceed the fetch rate
	ErrRateLimited = errors.New("web: fetch rate exceeded")
	// ErrStatus is returned for non-2xx responses
	ErrStatus = errors.New("web: unexpected status")
)

// FetcherConfig tunes the HTTP fetcher
type FetcherConfig struct {
	Timeout time.Duration `toml:"timeout" env:"TIMEOUT"`
	// Sustained requests per second and burst size
	Rate    float64 `toml:"rate" env:"RATE"`
	Burst   int     `toml:"burst" env:"BURST"`
	MaxBody int64   `toml:"max_body" env:"MAX_BODY"`
}

// DefaultFetcherConfig allows a burst of two requests, refilled every 30s
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout: 10 * time.Second,
		Rate:    1.0 / 30,
		Burst:   2,
		MaxBody: 64 << 10,
	}
}

// Validate checks the fetcher settings
func (c FetcherConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.Newf("fetch timeout must be positive, got %v", c.Timeout)
	}
	if c.Rate <= 0 || c.Burst <= 0 {
		return errors.Newf("fetch rate and burst must be positive (rate=%v burst=%d)", c.Rate, c.Burst)
	}
	if c.MaxBody <= 0 {
		return errors.Newf("fetch max_body must be positive, got %d", c.MaxBody)
	}
	return nil
}

// Fetcher performs rate-limited GET requests
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	maxBody int64
	logger  *zap.SugaredLogger
}

// NewFetcher creates a fetcher
func NewFetcher(cfg FetcherConfig, logger *zap.SugaredLogger) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		maxBody: cfg.MaxBody,
		logger:  logger,
	}
}

// Get returns the response body of url. Requests over the configured rate
// fail immediately with ErrRateLimited instead of waiting.
func (f *Fetcher) Get(ctx context.Context, url string) (string, error) {
	if !f.limiter.Allow() {
		return "", ErrRateLimited
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "http get")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Wrapf(ErrStatus, "%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", errors.Wrap(err, "read body")
	}

	f.logger.Debugw("fetched",
		"host", req.URL.Host,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start))
	return string(body), nil
}
