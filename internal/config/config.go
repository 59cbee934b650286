// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/nugraph/nugraph/internal/issue"
	"github.com/nugraph/nugraph/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "nugraph"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (NUGRAPH_HTTP_TIMEOUT).
	EnvPrefix = "NUGRAPH"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the nugraph configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// CacheDir returns the default HTTP cache directory.
func CacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// ResolvePath returns the config file that Load would read for opts, or
// "" when none exists and defaults apply.
func ResolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}
	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	for _, candidate := range []string{
		filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
		ConfigFileName + "." + ConfigFileExt,
	} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// loadWithOptions performs option-driven config loading. It returns the
// config together with the file it was read from ("" for defaults only).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper(opts.Env)

	if opts.ConfigFilePath != "" && !fileExists(opts.ConfigFilePath) {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'nugraph config show' to see the default configuration").
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	path, err := ResolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'nugraph config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(displayPath(path)).
			WithSuggestion("Every source needs a unique name and an http(s) URL or a local directory").
			WithSuggestion("Durations use Go syntax, for example \"30s\" or \"2m\"").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, path, nil
}

// newViper creates a Viper instance holding every default and wired for
// NUGRAPH_ environment overrides. A non-nil env replaces the process environment.
func newViper(env map[string]string) *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("sources", []map[string]any{{"name": defaults.Sources[0].Name, "url": defaults.Sources[0].URL}})
	v.SetDefault("resolve.framework", defaults.Resolve.Framework)
	v.SetDefault("resolve.include_prerelease", defaults.Resolve.IncludePrerelease)
	v.SetDefault("resolve.max_versions", defaults.Resolve.MaxVersions)
	v.SetDefault("resolve.fetch_concurrency", defaults.Resolve.FetchConcurrency)
	v.SetDefault("resolve.solver_timeout", defaults.Resolve.SolverTimeout)
	v.SetDefault("resolve.global_timeout", defaults.Resolve.GlobalTimeout)
	v.SetDefault("resolve.exclude_auto_referenced", defaults.Resolve.ExcludeAutoReferenced)
	v.SetDefault("resolve.exclude_development_only", defaults.Resolve.ExcludeDevelopmentOnly)
	v.SetDefault("http.timeout", defaults.HTTP.Timeout)
	v.SetDefault("http.max_retries", defaults.HTTP.MaxRetries)
	v.SetDefault("http.user_agent", defaults.HTTP.UserAgent)
	v.SetDefault("http.cache_dir", defaults.HTTP.CacheDir)
	v.SetDefault("http.cache_ttl", defaults.HTTP.CacheTTL)
	v.SetDefault("http.disk_cache", defaults.HTTP.DiskCache)
	v.SetDefault("http.memory_cache_entries", defaults.HTTP.MemoryCacheEntries)
	v.SetDefault("neo4j.uri", defaults.Neo4j.URI)
	v.SetDefault("neo4j.user", defaults.Neo4j.User)
	v.SetDefault("neo4j.password", defaults.Neo4j.Password)
	v.SetDefault("neo4j.database", defaults.Neo4j.Database)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color", defaults.UI.Color)
	v.SetDefault("ui.log_format", defaults.UI.LogFormat)

	if env != nil {
		// Explicit overrides are applied as plain values so tests stay hermetic.
		for _, key := range v.AllKeys() {
			name := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
			if val, ok := env[name]; ok {
				v.Set(key, val)
			}
		}
		return v
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.DecodeMap(configSchema, "#Config", data, path)
	if err != nil {
		return err
	}

	// Merging preserves defaults for absent keys and keeps env overrides on top.
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func displayPath(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration into dir (the
// platform config directory when empty) unless a config file already exists.
// It returns the file path and whether it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(cfgPath) {
		return cfgPath, false, nil
	}
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// nugraph configuration file\n\n")

	sb.WriteString("sources: [\n")
	for _, src := range cfg.Sources {
		fmt.Fprintf(&sb, "\t{name: %q, url: %q},\n", src.Name, src.URL)
	}
	sb.WriteString("]\n")

	r := cfg.Resolve
	sb.WriteString("\nresolve: {\n")
	fmt.Fprintf(&sb, "\tframework: %q\n", r.Framework)
	fmt.Fprintf(&sb, "\tinclude_prerelease: %v\n", r.IncludePrerelease)
	fmt.Fprintf(&sb, "\tmax_versions: %d\n", r.MaxVersions)
	if r.FetchConcurrency > 0 {
		fmt.Fprintf(&sb, "\tfetch_concurrency: %d\n", r.FetchConcurrency)
	}
	fmt.Fprintf(&sb, "\tsolver_timeout: %q\n", r.SolverTimeout.String())
	fmt.Fprintf(&sb, "\tglobal_timeout: %q\n", r.GlobalTimeout.String())
	fmt.Fprintf(&sb, "\texclude_auto_referenced: %v\n", r.ExcludeAutoReferenced)
	fmt.Fprintf(&sb, "\texclude_development_only: %v\n", r.ExcludeDevelopmentOnly)
	sb.WriteString("}\n")

	h := cfg.HTTP
	sb.WriteString("\nhttp: {\n")
	fmt.Fprintf(&sb, "\ttimeout: %q\n", h.Timeout.String())
	fmt.Fprintf(&sb, "\tmax_retries: %d\n", h.MaxRetries)
	if h.UserAgent != "" {
		fmt.Fprintf(&sb, "\tuser_agent: %q\n", h.UserAgent)
	}
	if h.CacheDir != "" {
		fmt.Fprintf(&sb, "\tcache_dir: %q\n", h.CacheDir)
	}
	fmt.Fprintf(&sb, "\tcache_ttl: %q\n", h.CacheTTL.String())
	fmt.Fprintf(&sb, "\tdisk_cache: %v\n", h.DiskCache)
	fmt.Fprintf(&sb, "\tmemory_cache_entries: %d\n", h.MemoryCacheEntries)
	sb.WriteString("}\n")

	if cfg.Neo4j != (Neo4jConfig{}) {
		n := cfg.Neo4j
		sb.WriteString("\nneo4j: {\n")
		fmt.Fprintf(&sb, "\turi: %q\n", n.URI)
		fmt.Fprintf(&sb, "\tuser: %q\n", n.User)
		fmt.Fprintf(&sb, "\tpassword: %q\n", n.Password)
		if n.Database != "" {
			fmt.Fprintf(&sb, "\tdatabase: %q\n", n.Database)
		}
		sb.WriteString("}\n")
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor: %v\n", cfg.UI.Color)
	fmt.Fprintf(&sb, "\tlog_format: %q\n", cfg.UI.LogFormat)
	sb.WriteString("}\n")

	return sb.String()
}
