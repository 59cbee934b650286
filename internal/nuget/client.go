// SPDX-License-Identifier: MPL-2.0

package nuget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultUserAgent identifies requests made by nugraph.
	DefaultUserAgent = "nugraph (+https://github.com/nugraph/nugraph)"

	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 3
	defaultRetryInitial = 200 * time.Millisecond

	// maxResponseBytes bounds a single feed document.
	maxResponseBytes = 64 << 20
)

type (
	// ClientOptions configures a Client. Zero values select the defaults.
	ClientOptions struct {
		Timeout    time.Duration
		MaxRetries int
		// RetryInitial is the first backoff interval.
		RetryInitial time.Duration
		UserAgent    string
		// Cache stores successful responses by URL. Nil disables caching.
		Cache      Cache
		Logger     *slog.Logger
		HTTPClient *http.Client
	}

	// Client fetches JSON documents from NuGet feeds, retrying transient
	// failures with exponential backoff.
	Client struct {
		http         *http.Client
		userAgent    string
		maxRetries   int
		retryInitial time.Duration
		cache        Cache
		logger       *slog.Logger
	}
)

// NewClient creates a Client with a pooled transport.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		http:         opts.HTTPClient,
		userAgent:    opts.UserAgent,
		maxRetries:   opts.MaxRetries,
		retryInitial: opts.RetryInitial,
		cache:        opts.Cache,
		logger:       opts.Logger,
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	} else if opts.MaxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.retryInitial <= 0 {
		c.retryInitial = defaultRetryInitial
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// GetJSON decodes the document at url into v. It reports false without an
// error when the server answers 404.
func (c *Client) GetJSON(ctx context.Context, url string, v any) (bool, error) {
	data, err := c.get(ctx, url)
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, malformedf("%s: %v", url, err)
	}
	return true, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if c.cache != nil {
		if data, ok := c.cache.Get(url); ok {
			c.logger.Debug("cache hit", "url", url)
			return data, nil
		}
	}

	policy := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.retryInitial),
		backoff.WithMaxInterval(5*time.Second),
		backoff.WithMaxElapsedTime(0),
	)
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying request", "url", url, "error", err, "wait", wait)
	}
	data, err := backoff.RetryNotifyWithData[[]byte](func() ([]byte, error) {
		return c.fetch(ctx, url)
	}, b, notify)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(url, data); err != nil {
			c.logger.Debug("cache write failed", "url", url, "error", err)
		}
	}
	return data, nil
}

// fetch performs one attempt. Errors that must not be retried are wrapped
// with backoff.Permanent.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("http request", "url", url, "status", resp.StatusCode, "duration", time.Since(start).Round(time.Millisecond))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(errNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		serr := &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
		if serr.Temporary() {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}
