// SPDX-License-Identifier: MPL-2.0

package universe

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of packages fetched in parallel within a wave.
const DefaultConcurrency = 4

type (
	// MetadataProvider returns the candidate versions of a package, ascending
	// by version, deduplicated and capped to the newest maxVersions.
	MetadataProvider interface {
		GetVersions(ctx context.Context, packageID string, includePrerelease bool, maxVersions int) ([]PackageVersionNode, error)
	}

	// FrameworkOracle picks the dependency group that applies to a target
	// framework among the monikers a package version declares.
	FrameworkOracle interface {
		SelectNearest(candidates []string, target string) (string, bool)
	}

	// Option configures a Builder.
	Option func(*Builder)

	// Builder computes the dependency closure of a set of root packages.
	Builder struct {
		provider    MetadataProvider
		oracle      FrameworkOracle
		framework   string
		logger      *slog.Logger
		concurrency int
		// excludeAuto and excludeDev drop flagged edges from traversal and
		// from the effective dependency lists.
		excludeAuto bool
		excludeDev  bool
	}

	// BuildRequest describes one closure computation.
	BuildRequest struct {
		Roots             []string
		IncludePrerelease bool
		MaxVersions       int
	}
)

// WithLogger sets the logger used for progress diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithConcurrency bounds the number of in-flight fetches per wave.
// Values below 1 fall back to DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithExcludeAutoReferenced drops dependencies flagged as auto-referenced.
func WithExcludeAutoReferenced(exclude bool) Option {
	return func(b *Builder) { b.excludeAuto = exclude }
}

// WithExcludeDevelopmentOnly drops dependencies flagged as development-only.
func WithExcludeDevelopmentOnly(exclude bool) Option {
	return func(b *Builder) { b.excludeDev = exclude }
}

// NewBuilder creates a Builder that reduces dependency groups for targetFramework.
func NewBuilder(provider MetadataProvider, oracle FrameworkOracle, targetFramework string, opts ...Option) *Builder {
	b := &Builder{
		provider:    provider,
		oracle:      oracle,
		framework:   targetFramework,
		logger:      slog.New(slog.DiscardHandler),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build fetches every package reachable from req.Roots exactly once and
// returns the closed universe.
//
// Packages are fetched in breadth-first waves; fetches within a wave run
// concurrently. The result does not depend on fetch completion order. The first
// provider error aborts the build and is returned unchanged; a done context
// yields a CancelledError. No partial universe is ever returned.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*Universe, error) {
	start := time.Now()

	roots := dedupe(req.Roots)
	candidates := make(map[string][]PackageVersionNode)
	seen := make(map[string]struct{}, len(roots))
	for _, id := range roots {
		seen[Key(id)] = struct{}{}
	}

	frontier := roots
	for wave := 1; len(frontier) > 0; wave++ {
		if err := ctx.Err(); err != nil {
			return nil, &CancelledError{Cause: err}
		}
		b.logger.Debug("fetching wave", "wave", wave, "packages", len(frontier))

		results, err := b.fetchWave(ctx, frontier, req)
		if err != nil {
			return nil, err
		}

		discovered := make(map[string]string)
		for i, id := range frontier {
			nodes := results[i]
			candidates[id] = nodes
			for _, n := range nodes {
				for _, g := range n.DependencyGroups {
					for _, d := range g.Dependencies {
						if !b.keep(d) {
							continue
						}
						k := Key(d.PackageID)
						if _, ok := seen[k]; ok {
							continue
						}
						if _, ok := discovered[k]; !ok {
							discovered[k] = d.PackageID
						}
					}
				}
			}
		}

		frontier = make([]string, 0, len(discovered))
		for k, id := range discovered {
			seen[k] = struct{}{}
			frontier = append(frontier, id)
		}
		slices.SortFunc(frontier, func(a, b string) int { return cmp.Compare(Key(a), Key(b)) })
	}

	effective := make(map[VersionKey][]DependencyInfo)
	for id, nodes := range candidates {
		for i, n := range nodes {
			effective[VersionKey{PackageID: id, Index: i}] = b.effectiveDependencies(n)
		}
	}

	u, err := New(Definition{
		Framework:  b.framework,
		TopLevel:   roots,
		Candidates: candidates,
		Effective:  effective,
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info("universe built",
		"packages", u.Len(),
		"versions", u.VersionCount(),
		"edges", u.EdgeCount(),
		"framework", b.framework,
		"duration", time.Since(start).Round(time.Millisecond))
	return u, nil
}

// fetchWave fetches all packages of one wave. results[i] belongs to frontier[i].
func (b *Builder) fetchWave(ctx context.Context, frontier []string, req BuildRequest) ([][]PackageVersionNode, error) {
	results := make([][]PackageVersionNode, len(frontier))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, id := range frontier {
		g.Go(func() error {
			nodes, err := b.provider.GetVersions(gctx, id, req.IncludePrerelease, req.MaxVersions)
			if err != nil {
				return err
			}
			for j := range nodes {
				if nodes[j].PackageID == "" {
					nodes[j].PackageID = id
				}
			}
			b.logger.Debug("fetched package", "package", id, "versions", len(nodes))
			results[i] = nodes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &CancelledError{Cause: ctxErr}
		}
		return nil, err
	}
	return results, nil
}

// effectiveDependencies reduces a version's dependency groups to the list that
// applies to the target framework. No compatible group means no dependencies.
func (b *Builder) effectiveDependencies(n PackageVersionNode) []DependencyInfo {
	if len(n.DependencyGroups) == 0 {
		return nil
	}
	chosen, ok := b.oracle.SelectNearest(n.Frameworks(), b.framework)
	if !ok {
		return nil
	}
	for _, g := range n.DependencyGroups {
		if g.FrameworkMoniker != chosen {
			continue
		}
		deps := make([]DependencyInfo, 0, len(g.Dependencies))
		for _, d := range g.Dependencies {
			if b.keep(d) {
				deps = append(deps, d)
			}
		}
		return deps
	}
	return nil
}

func (b *Builder) keep(d DependencyInfo) bool {
	if b.excludeAuto && d.AutoReferenced {
		return false
	}
	if b.excludeDev && d.DevelopmentOnly {
		return false
	}
	return true
}

// dedupe removes blank and case-insensitively repeated IDs, keeping the first spelling.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		k := Key(id)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, strings.TrimSpace(id))
	}
	return out
}
