// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nugraph/nugraph/internal/config"
	"github.com/nugraph/nugraph/internal/issue"
	"github.com/nugraph/nugraph/internal/lockfile"
	"github.com/nugraph/nugraph/pkg/framework"
	"github.com/nugraph/nugraph/pkg/solver"
	"github.com/nugraph/nugraph/pkg/universe"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type (
	// resolveFlags holds the resolve command flags. Values only override the
	// configuration when the flag was set.
	resolveFlags struct {
		packages          []string
		framework         string
		sources           []string
		includePrerelease bool
		maxVersions       int
		concurrency       int
		excludeAuto       bool
		excludeDev        bool
		solverTimeout     time.Duration
		timeout           time.Duration
		optimize          []string
		lockPath          string
		output            string
		neo4jURI          string
		neo4jUser         string
		neo4jPassword     string
		neo4jDatabase     string
	}

	// resolveRequest is one fully configured resolution.
	resolveRequest struct {
		Packages []string
		// Optimize overrides the packages whose versions are maximized.
		Optimize []string
		Sources  []config.SourceConfig
		Resolve  config.ResolveConfig
		HTTP     config.HTTPConfig
		Neo4j    config.Neo4jConfig
		LockPath string
	}

	// resolveResult is the outcome of a successful resolution.
	resolveResult struct {
		Universe *universe.Universe
		Solution *solver.Solution
		// ResolutionID is the graph store ID, empty without a store.
		ResolutionID string
		Lock         *lockfile.Lock
		lockPath     string
	}
)

func newResolveCommand(app *App) *cobra.Command {
	var f resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve [package-id...]",
		Short: "Select the newest mutually compatible versions of packages",
		Long: `Fetch the dependency closure of the given packages for one target framework
and select the newest versions in which every declared dependency range is
satisfied. Packages may be given as arguments, with --package, or both;
comma-separated lists are accepted.`,
		Example: `  nugraph resolve Serilog Serilog.Sinks.Console
  nugraph resolve -p "Newtonsoft.Json,Polly" --framework net472
  nugraph resolve Serilog --source ./feed --lock packages.lock.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd, app.config(), args)
			if err != nil {
				return classifyError(err)
			}
			res, err := app.resolve(cmd.Context(), req)
			if err != nil {
				return classifyError(err)
			}
			return app.renderResolve(res, f.output)
		},
	}

	bindResolveFlags(cmd, &f)
	return cmd
}

// bindResolveFlags registers the resolve flags on cmd.
func bindResolveFlags(cmd *cobra.Command, f *resolveFlags) {
	flags := cmd.Flags()
	flags.StringSliceVarP(&f.packages, "package", "p", nil, "package IDs to resolve (repeatable, comma-separated)")
	flags.StringVarP(&f.framework, "framework", "f", "", "target framework moniker, e.g. net8.0 or netstandard2.0")
	flags.StringVar(&f.framework, "tfm", "", "alias for --framework")
	_ = flags.MarkHidden("tfm")
	flags.StringArrayVarP(&f.sources, "source", "s", nil, "package source URL or directory, replaces configured sources (repeatable)")
	flags.BoolVar(&f.includePrerelease, "include-prerelease", false, "consider prerelease versions")
	flags.IntVar(&f.maxVersions, "max-versions", 0, "newest candidate versions kept per package")
	flags.IntVar(&f.concurrency, "concurrency", 0, "packages fetched in parallel")
	flags.BoolVar(&f.excludeAuto, "exclude-auto-referenced", false, "ignore dependencies marked auto-referenced")
	flags.BoolVar(&f.excludeDev, "exclude-development-only", false, "ignore dependencies marked development-only")
	flags.DurationVar(&f.solverTimeout, "solver-timeout", 0, "time budget of the solver")
	flags.DurationVar(&f.timeout, "timeout", 0, "time budget of the whole run, fetching included (0 disables)")
	flags.StringSliceVar(&f.optimize, "optimize", nil, "maximize these packages instead of the requested ones")
	flags.StringVar(&f.lockPath, "lock", "", "write the selection to this lock file")
	flags.StringVarP(&f.output, "output", "o", outputTable, "output format: table or json")
	flags.StringVar(&f.neo4jURI, "neo4j-uri", "", "Neo4j URI for recording the dependency graph")
	flags.StringVar(&f.neo4jUser, "neo4j-user", "", "Neo4j user")
	flags.StringVar(&f.neo4jPassword, "neo4j-password", "", "Neo4j password")
	flags.StringVar(&f.neo4jDatabase, "neo4j-database", "", "Neo4j database")
}

// request merges the configuration with the flags that were set.
func (f *resolveFlags) request(cmd *cobra.Command, cfg *config.Config, args []string) (resolveRequest, error) {
	if f.output != outputTable && f.output != outputJSON {
		return resolveRequest{}, &ExitError{Code: ExitUsage, Err: fmt.Errorf("unknown output format %q (want %s or %s)", f.output, outputTable, outputJSON)}
	}

	packages, err := parsePackageIDs(args, f.packages)
	if err != nil {
		return resolveRequest{}, err
	}
	var optimize []string
	if len(f.optimize) > 0 {
		if optimize, err = parsePackageIDs(f.optimize); err != nil {
			return resolveRequest{}, err
		}
	}

	req := resolveRequest{
		Packages: packages,
		Optimize: optimize,
		Sources:  cfg.Sources,
		Resolve:  cfg.Resolve,
		HTTP:     cfg.HTTP,
		Neo4j:    cfg.Neo4j,
		LockPath: f.lockPath,
	}

	changed := cmd.Flags().Changed
	if changed("framework") || changed("tfm") {
		req.Resolve.Framework = f.framework
	}
	if changed("source") {
		req.Sources = sourcesFromFlags(f.sources)
	}
	if changed("include-prerelease") {
		req.Resolve.IncludePrerelease = f.includePrerelease
	}
	if changed("max-versions") {
		req.Resolve.MaxVersions = f.maxVersions
	}
	if changed("concurrency") {
		req.Resolve.FetchConcurrency = f.concurrency
	}
	if changed("exclude-auto-referenced") {
		req.Resolve.ExcludeAutoReferenced = f.excludeAuto
	}
	if changed("exclude-development-only") {
		req.Resolve.ExcludeDevelopmentOnly = f.excludeDev
	}
	if changed("solver-timeout") {
		req.Resolve.SolverTimeout = f.solverTimeout
	}
	if changed("timeout") {
		req.Resolve.GlobalTimeout = f.timeout
	}
	if changed("neo4j-uri") {
		req.Neo4j.URI = f.neo4jURI
	}
	if changed("neo4j-user") {
		req.Neo4j.User = f.neo4jUser
	}
	if changed("neo4j-password") {
		req.Neo4j.Password = f.neo4jPassword
	}
	if changed("neo4j-database") {
		req.Neo4j.Database = f.neo4jDatabase
	}

	if _, err := framework.Parse(req.Resolve.Framework); err != nil {
		return resolveRequest{}, err
	}
	if len(req.Sources) == 0 {
		return resolveRequest{}, &ExitError{Code: ExitUsage, Err: fmt.Errorf("no package sources configured")}
	}
	return req, nil
}

// resolve builds the universe, persists it, solves it and writes the lock
// file. The graph store is opened before any feed is contacted so that a
// bad connection fails fast.
func (a *App) resolve(ctx context.Context, req resolveRequest) (*resolveResult, error) {
	if req.Resolve.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Resolve.GlobalTimeout)
		defer cancel()
	}

	feeds, err := a.newFeedStack(req.Sources, req.HTTP)
	if err != nil {
		return nil, err
	}
	defer feeds.close(a)

	store, err := a.OpenStore(ctx, req.Neo4j, a.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("failed to close graph store", "error", err)
		}
	}()

	builder := universe.NewBuilder(feeds.provider, framework.NewOracle(), req.Resolve.Framework,
		universe.WithLogger(a.logger),
		universe.WithConcurrency(req.Resolve.FetchConcurrency),
		universe.WithExcludeAutoReferenced(req.Resolve.ExcludeAutoReferenced),
		universe.WithExcludeDevelopmentOnly(req.Resolve.ExcludeDevelopmentOnly),
	)
	u, err := builder.Build(ctx, universe.BuildRequest{
		Roots:             req.Packages,
		IncludePrerelease: req.Resolve.IncludePrerelease,
		MaxVersions:       req.Resolve.EffectiveMaxVersions(),
	})
	if err != nil {
		return nil, err
	}
	for _, id := range req.Optimize {
		if _, ok := u.Lookup(id); !ok {
			return nil, fmt.Errorf("%w: optimized package %q is not in the dependency closure", errInvalidPackageID, id)
		}
	}

	if err := store.UpsertUniverse(ctx, u); err != nil {
		return nil, err
	}

	s := solver.New(solver.WithTimeout(req.Resolve.SolverTimeout), solver.WithLogger(a.logger))
	sol, err := s.Solve(ctx, u, req.Optimize)
	if err != nil {
		return nil, err
	}
	if err := solver.Verify(u, sol); err != nil {
		return nil, fmt.Errorf("selection failed verification: %w", err)
	}

	res := &resolveResult{Universe: u, Solution: sol}
	if res.ResolutionID, err = store.RecordSolution(ctx, u, sol); err != nil {
		return nil, err
	}

	if req.LockPath != "" {
		lock, err := lockfile.FromSolution(u, sol)
		if err == nil {
			err = lockfile.WriteFile(req.LockPath, lock)
		}
		if err != nil {
			wrapped := issue.WrapWithContext(err, "write lock file", req.LockPath)
			return nil, newServiceError(wrapped, issue.LockFileFailedId, ExitFailure)
		}
		res.Lock, res.lockPath = lock, req.LockPath
		if len(lock.Cycles) > 0 {
			a.logger.Warn("dependency cycle in selection, lock file order is partial", "packages", lock.Cycles)
		}
	}
	return res, nil
}
