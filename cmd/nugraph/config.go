// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nugraph/nugraph/internal/config"
	"github.com/nugraph/nugraph/internal/issue"
)

// configSetters lists the keys `config set` accepts.
var configSetters = map[string]func(cfg *config.Config, value string) error{
	"resolve.framework": func(cfg *config.Config, v string) error {
		cfg.Resolve.Framework = v
		return nil
	},
	"resolve.include_prerelease": boolSetter(func(cfg *config.Config) *bool { return &cfg.Resolve.IncludePrerelease }),
	"resolve.max_versions":       intSetter(func(cfg *config.Config) *int { return &cfg.Resolve.MaxVersions }),
	"resolve.fetch_concurrency":  intSetter(func(cfg *config.Config) *int { return &cfg.Resolve.FetchConcurrency }),
	"resolve.solver_timeout":     durationSetter(func(cfg *config.Config) *time.Duration { return &cfg.Resolve.SolverTimeout }),
	"resolve.global_timeout":     durationSetter(func(cfg *config.Config) *time.Duration { return &cfg.Resolve.GlobalTimeout }),
	"http.timeout":               durationSetter(func(cfg *config.Config) *time.Duration { return &cfg.HTTP.Timeout }),
	"http.max_retries":           intSetter(func(cfg *config.Config) *int { return &cfg.HTTP.MaxRetries }),
	"http.disk_cache":            boolSetter(func(cfg *config.Config) *bool { return &cfg.HTTP.DiskCache }),
	"http.cache_ttl":             durationSetter(func(cfg *config.Config) *time.Duration { return &cfg.HTTP.CacheTTL }),
	"ui.verbose":                 boolSetter(func(cfg *config.Config) *bool { return &cfg.UI.Verbose }),
	"ui.color":                   boolSetter(func(cfg *config.Config) *bool { return &cfg.UI.Color }),
	"ui.log_format": func(cfg *config.Config, v string) error {
		cfg.UI.LogFormat = config.LogFormat(v)
		return nil
	},
}

// newConfigCommand creates the `nugraph config` command tree. The tree skips
// the root config load so that a broken file can still be located and replaced.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nugraph configuration",
		Long: `Manage nugraph configuration.

Configuration is stored in:
  - Linux: ~/.config/nugraph/config.cue
  - macOS: ~/Library/Application Support/nugraph/config.cue
  - Windows: %APPDATA%\nugraph\config.cue

Every key can be overridden by an environment variable such as
NUGRAPH_RESOLVE_FRAMEWORK or NUGRAPH_HTTP_TIMEOUT.`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.showConfig(cmd.Context())
		},
	})

	var initDir string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.initConfig(initDir)
		},
	}
	initCmd.Flags().StringVar(&initDir, "dir", "", "directory to create config.cue in (default is the platform config directory)")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration and cache paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.showConfigPath()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a configuration value",
		Args:      usageArgs(cobra.ExactArgs(2)),
		ValidArgs: slices.Sorted(maps.Keys(configSetters)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.setConfigValue(cmd.Context(), args[0], args[1])
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadForConfigCommand(cmd.Context(), config.LoadOptions{ConfigFilePath: app.flags.configFile})
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

// loadForConfigCommand loads configuration and classifies a failure.
func (a *App) loadForConfigCommand(ctx context.Context, opts config.LoadOptions) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, opts)
	if err != nil {
		svc := newServiceError(err, issue.ConfigLoadFailedId, ExitFailure)
		return nil, &ExitError{Code: svc.Code, Err: svc}
	}
	return cfg, nil
}

func (a *App) showConfig(ctx context.Context) error {
	opts := config.LoadOptions{ConfigFilePath: a.flags.configFile}
	cfg, err := a.loadForConfigCommand(ctx, opts)
	if err != nil {
		return err
	}

	p := a.palette()
	w := a.stdout
	kv := func(indent, key string, value any) {
		fmt.Fprintf(w, "%s%s: %s\n", indent, p.key.Render(key), p.success.Render(fmt.Sprint(value)))
	}

	fmt.Fprintln(w, p.title.Render("Current Configuration"))
	fmt.Fprintln(w)

	path, err := config.ResolvePath(opts)
	if err != nil || path == "" {
		fmt.Fprintf(w, "%s: %s\n", p.key.Render("Config file"), p.subtitle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n", p.key.Render("Config file"), path)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", p.key.Render("sources"))
	for _, src := range cfg.Sources {
		fmt.Fprintf(w, "  - %s %s\n", p.success.Render(src.Name), p.subtitle.Render(src.URL))
	}

	r := cfg.Resolve
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", p.key.Render("resolve"))
	kv("  ", "framework", r.Framework)
	kv("  ", "include_prerelease", r.IncludePrerelease)
	kv("  ", "max_versions", r.EffectiveMaxVersions())
	kv("  ", "fetch_concurrency", r.FetchConcurrency)
	kv("  ", "solver_timeout", r.SolverTimeout)
	kv("  ", "global_timeout", r.GlobalTimeout)
	kv("  ", "exclude_auto_referenced", r.ExcludeAutoReferenced)
	kv("  ", "exclude_development_only", r.ExcludeDevelopmentOnly)

	h := cfg.HTTP
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", p.key.Render("http"))
	kv("  ", "timeout", h.Timeout)
	kv("  ", "max_retries", h.MaxRetries)
	kv("  ", "cache_ttl", h.CacheTTL)
	kv("  ", "disk_cache", h.DiskCache)
	kv("  ", "memory_cache_entries", h.MemoryCacheEntries)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", p.key.Render("neo4j"))
	if cfg.Neo4j.Configured() {
		kv("  ", "uri", cfg.Neo4j.URI)
		kv("  ", "user", cfg.Neo4j.User)
		kv("  ", "password", "********")
	} else {
		fmt.Fprintf(w, "  %s\n", p.subtitle.Render("(not configured)"))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", p.key.Render("ui"))
	kv("  ", "verbose", cfg.UI.Verbose)
	kv("  ", "color", cfg.UI.Color)
	kv("  ", "log_format", cfg.UI.LogFormat)
	return nil
}

func (a *App) initConfig(dir string) error {
	path, created, err := config.CreateDefaultConfig(dir)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	p := a.palette()
	if !created {
		fmt.Fprintf(a.stdout, "%s Configuration already exists at %s\n", p.warning.Render("!"), path)
		return nil
	}
	fmt.Fprintf(a.stdout, "%s Created default configuration at %s\n", p.success.Render("✓"), path)
	return nil
}

func (a *App) showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(a.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))

	if cacheDir, err := config.CacheDir(); err == nil {
		fmt.Fprintf(a.stdout, "Cache directory: %s\n", cacheDir)
	}
	return nil
}

// setConfigValue updates one key in the config file, creating the file from
// defaults when none exists. Environment overrides are not written back.
func (a *App) setConfigValue(ctx context.Context, key, value string) error {
	set, ok := configSetters[key]
	if !ok {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("unknown configuration key: %s", key)}
	}

	path := a.flags.configFile
	if path == "" {
		found, err := config.ResolvePath(config.LoadOptions{})
		if err != nil {
			return err
		}
		path = found
	}
	if path == "" {
		cfgDir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
	}

	opts := config.LoadOptions{Env: map[string]string{}}
	if _, err := os.Stat(path); err == nil {
		opts.ConfigFilePath = path
	} else {
		opts.ConfigDirPath = filepath.Dir(path)
	}
	cfg, err := a.loadForConfigCommand(ctx, opts)
	if err != nil {
		return err
	}

	if err := set(cfg, value); err != nil {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("invalid value for %s: %w", key, err)}
	}
	if valid, errs := cfg.IsValid(); !valid {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("invalid value for %s: %w", key, errs[0])}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(a.stdout, "%s Set %s = %s\n", a.palette().success.Render("✓"), key, value)
	return nil
}

func boolSetter(field func(*config.Config) *bool) func(*config.Config, string) error {
	return func(cfg *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(cfg) = b
		return nil
	}
}

func intSetter(field func(*config.Config) *int) func(*config.Config, string) error {
	return func(cfg *config.Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(cfg) = n
		return nil
	}
}

func durationSetter(field func(*config.Config) *time.Duration) func(*config.Config, string) error {
	return func(cfg *config.Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(cfg) = d
		return nil
	}
}
