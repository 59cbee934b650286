// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/nugraph/nugraph/internal/config"
	"github.com/nugraph/nugraph/internal/graphstore"
	"github.com/nugraph/nugraph/internal/issue"
	"github.com/nugraph/nugraph/pkg/framework"
	"github.com/nugraph/nugraph/pkg/solver"
	"github.com/nugraph/nugraph/pkg/universe"
	"github.com/nugraph/nugraph/pkg/version"
)

// skipConfigAnnotation marks commands that run without loading the config file.
const skipConfigAnnotation = "nugraph/skip-config"

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the nugraph command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Find the newest mutually compatible NuGet package versions",
		Long: helpPalette.title.Render("nugraph") + helpPalette.subtitle.Render(" - Find the newest mutually compatible NuGet package versions") + `

nugraph fetches the dependency closure of a set of packages for one target
framework and solves for the newest set of versions in which every
dependency range is satisfied.

` + helpPalette.subtitle.Render("Examples:") + `
  nugraph resolve Serilog Serilog.Sinks.Console --framework net8.0
  nugraph resolve -p Newtonsoft.Json --lock packages.lock.toml
  nugraph versions Serilog --range "[3.0,4.0)"
  nugraph frameworks net8.0 netstandard2.0 net472
  nugraph config show`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsConfig(cmd) {
				app.useConfig(nil)
				return nil
			}
			return app.loadConfig(cmd.Context())
		},
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	flags := root.PersistentFlags()
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output and debug logging")
	flags.StringVar(&app.flags.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/nugraph/config.cue)")
	flags.StringVar(&app.flags.logFormat, "log-format", "", "log format: text, json or logfmt")
	flags.BoolVar(&app.flags.noColor, "no-color", false, "disable colored output (also honors NO_COLOR)")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Err: err}
	})

	root.AddCommand(
		newResolveCommand(app),
		newVersionsCommand(app),
		newFrameworksCommand(app),
		newConfigCommand(app),
		newCacheCommand(app),
	)
	return root
}

// skipsConfig reports whether cmd or one of its parents opted out of config loading.
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the code of the outcome.
// This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(ExitFailure))
	}

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	err = fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.handleError),
	)
	os.Exit(int(exitCodeOf(err)))
}

// classifyError maps a failure of the resolve pipeline to its issue and exit
// code. Errors that are already classified pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var svc *ServiceError
	if errors.As(err, &svc) {
		return &ExitError{Code: svc.Code, Err: svc}
	}

	var (
		id   issue.Id
		code = ExitFailure
	)
	switch {
	case errors.Is(err, solver.ErrInfeasible):
		id, code = issue.UnsatisfiableId, ExitInfeasible
	case errors.Is(err, solver.ErrTimeout):
		id, code = issue.SolverTimeoutId, ExitTimeout
	case errors.Is(err, universe.ErrCancelled):
		id, code = issue.CancelledId, ExitCancelled
	case errors.Is(err, universe.ErrFetch):
		// Checked before the context errors: an HTTP client timeout also
		// matches context.DeadlineExceeded.
		id = issue.MetadataFetchFailedId
	case errors.Is(err, graphstore.ErrGraphStore):
		id = issue.GraphStoreFailedId
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		id, code = issue.CancelledId, ExitCancelled
	case errors.Is(err, framework.ErrInvalidFramework):
		id, code = issue.InvalidFrameworkId, ExitUsage
	case errors.Is(err, errInvalidPackageID), errors.Is(err, version.ErrInvalidRange):
		id, code = issue.InvalidPackageSpecId, ExitUsage
	case errors.Is(err, errNoPackages):
		id, code = issue.NoPackagesId, ExitUsage
	default:
		return &ExitError{Code: ExitFailure, Err: err}
	}

	svc = newServiceError(err, id, code)
	return &ExitError{Code: code, Err: svc}
}

// usageArgs wraps a positional argument validator so that its failures exit
// with ExitUsage.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &ExitError{Code: ExitUsage, Err: err}
		}
		return nil
	}
}
