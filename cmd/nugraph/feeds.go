// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/nugraph/nugraph/internal/config"
	"github.com/nugraph/nugraph/internal/nuget"
)

// feedStack is the metadata provider for one run together with the caches it
// owns.
type feedStack struct {
	provider *nuget.Provider
	disk     *nuget.DiskCache
}

// newFeedStack builds the HTTP client, response caches and sources.
// A disk cache that cannot be opened is logged and skipped.
func (a *App) newFeedStack(sources []config.SourceConfig, httpCfg config.HTTPConfig) (*feedStack, error) {
	fs := &feedStack{}

	var layers nuget.TieredCache
	if httpCfg.MemoryCacheEntries > 0 {
		layers = append(layers, nuget.NewMemoryCache(httpCfg.MemoryCacheEntries, httpCfg.CacheTTL))
	}
	if httpCfg.DiskCache {
		dir, err := cacheDir(httpCfg)
		if err == nil {
			fs.disk, err = nuget.OpenDiskCache(dir, httpCfg.CacheTTL)
		}
		if err != nil {
			a.logger.Warn("disk cache disabled", "error", err)
		} else {
			layers = append(layers, fs.disk)
		}
	}

	opts := nuget.ClientOptions{
		Timeout:   httpCfg.Timeout,
		UserAgent: httpCfg.UserAgent,
		Logger:    a.logger,
		// Zero selects the client default, so an explicit zero disables retries.
		MaxRetries: httpCfg.MaxRetries,
	}
	if httpCfg.MaxRetries == 0 {
		opts.MaxRetries = -1
	}
	if len(layers) > 0 {
		opts.Cache = layers
	}
	client := nuget.NewClient(opts)

	feeds := make([]nuget.Source, 0, len(sources))
	for _, s := range sources {
		src, err := nuget.NewSource(s.Name, s.URL, client)
		if err != nil {
			fs.close(a)
			return nil, fmt.Errorf("source %q: %w", s.Name, err)
		}
		feeds = append(feeds, src)
	}
	fs.provider = nuget.NewProvider(feeds, nuget.WithProviderLogger(a.logger))
	return fs, nil
}

func (fs *feedStack) close(a *App) {
	if fs.disk == nil {
		return
	}
	if err := fs.disk.Close(); err != nil {
		a.logger.Warn("failed to close disk cache", "error", err)
	}
}

// cacheDir returns the configured disk cache directory or the user cache default.
func cacheDir(httpCfg config.HTTPConfig) (string, error) {
	if httpCfg.CacheDir != "" {
		return httpCfg.CacheDir, nil
	}
	return config.CacheDir()
}

// sourcesFromFlags turns --source values into source configs named after
// their location.
func sourcesFromFlags(locations []string) []config.SourceConfig {
	out := make([]config.SourceConfig, 0, len(locations))
	for _, loc := range locations {
		out = append(out, config.SourceConfig{Name: loc, URL: loc})
	}
	return out
}
