// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"golang.org/x/term"

	"github.com/nugraph/nugraph/internal/config"
	"github.com/nugraph/nugraph/internal/graphstore"
	"github.com/nugraph/nugraph/internal/issue"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and reads
	// configuration, logger and output streams from it.
	App struct {
		Config    ConfigProvider
		OpenStore StoreOpener
		stdout    io.Writer
		stderr    io.Writer
		lookupEnv func(string) (string, bool)

		flags  globalFlags
		cfg    *config.Config
		logger *slog.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    ConfigProvider
		OpenStore StoreOpener
		Stdout    io.Writer
		Stderr    io.Writer
		// LookupEnv replaces os.LookupEnv (used for NO_COLOR).
		LookupEnv func(string) (string, bool)
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// StoreOpener opens the graph store for one run.
	StoreOpener func(ctx context.Context, cfg config.Neo4jConfig, logger *slog.Logger) (graphstore.Store, error)

	// globalFlags holds the persistent root flags.
	globalFlags struct {
		configFile string
		verbose    bool
		logFormat  string
		noColor    bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.OpenStore == nil {
		deps.OpenStore = openGraphStore
	}
	if deps.LookupEnv == nil {
		deps.LookupEnv = os.LookupEnv
	}

	return &App{
		Config:    deps.Config,
		OpenStore: deps.OpenStore,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
		lookupEnv: deps.LookupEnv,
		logger:    slog.New(slog.DiscardHandler),
	}, nil
}

// openGraphStore opens Neo4j when the connection is fully configured and
// falls back to the no-op store otherwise.
func openGraphStore(ctx context.Context, cfg config.Neo4jConfig, logger *slog.Logger) (graphstore.Store, error) {
	if !cfg.Configured() {
		return graphstore.Null{}, nil
	}
	store, err := graphstore.Open(ctx, graphstore.Neo4jOptions{
		URI:      cfg.URI,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// loadConfig loads the configuration and applies the persistent flag
// overrides. It installs the process logger either way.
func (a *App) loadConfig(ctx context.Context) error {
	if valid, errs := a.logFormatOverride().IsValid(); a.flags.logFormat != "" && !valid {
		return &ExitError{Code: ExitUsage, Err: errs[0]}
	}

	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configFile})
	if err != nil {
		a.useConfig(nil)
		svc := newServiceError(err, issue.ConfigLoadFailedId, ExitFailure)
		return &ExitError{Code: svc.Code, Err: svc}
	}
	a.useConfig(cfg)
	return nil
}

// useConfig records cfg (defaults when nil) with flag overrides applied and
// rebuilds the logger.
func (a *App) useConfig(cfg *config.Config) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if a.flags.verbose {
		cfg.UI.Verbose = true
	}
	if a.flags.logFormat != "" {
		cfg.UI.LogFormat = a.logFormatOverride()
	}
	if _, ok := a.lookupEnv("NO_COLOR"); ok || a.flags.noColor || !isTerminal(a.stdout) {
		cfg.UI.Color = false
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.UI)
	slog.SetDefault(a.logger)
}

// isTerminal reports false only for files that are not a terminal, so
// redirected output is plain. Other writers are left to the configuration.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return !ok || term.IsTerminal(int(f.Fd()))
}

func (a *App) logFormatOverride() config.LogFormat {
	return config.LogFormat(a.flags.logFormat)
}

// config returns the active configuration, defaults before loading.
func (a *App) config() *config.Config {
	if a.cfg == nil {
		a.useConfig(nil)
	}
	return a.cfg
}

func (a *App) palette() palette {
	return newPalette(a.config().UI.Color)
}

// handleError is the fang error handler. Service errors get the actionable
// message and their issue catalog entry; anything else uses fang's default.
func (a *App) handleError(w io.Writer, styles fang.Styles, err error) {
	var svc *ServiceError
	if !errors.As(err, &svc) {
		fang.DefaultErrorHandler(w, styles, err)
		return
	}
	a.renderError(w, svc)
}

func (a *App) renderError(w io.Writer, svc *ServiceError) {
	cfg := a.config()
	fmt.Fprintln(w, a.palette().fail.Render("Error:")+" "+formatErrorForDisplay(svc.Err, cfg.UI.Verbose))
	renderServiceError(w, svc, cfg.UI.Color)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// exitCodeOf maps a command error to the process exit code.
func exitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var svc *ServiceError
	if errors.As(err, &svc) {
		return svc.Code
	}
	return ExitFailure
}
