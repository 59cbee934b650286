// SPDX-License-Identifier: MPL-2.0

package nuget

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nugraph/nugraph/pkg/universe"
	"github.com/nugraph/nugraph/pkg/version"
)

// DefaultMaxVersions is used when a caller passes a non-positive version cap.
const DefaultMaxVersions = 20

type (
	// ProviderOption configures a Provider.
	ProviderOption func(*Provider)

	// Provider merges several sources into one candidate list per package.
	// It implements universe.MetadataProvider.
	Provider struct {
		sources []Source
		logger  *slog.Logger
	}
)

// WithProviderLogger sets the logger used for fetch diagnostics.
func WithProviderLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider creates a Provider over sources, consulted in the given order.
func NewProvider(sources []Source, opts ...ProviderOption) *Provider {
	p := &Provider{sources: sources, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sources returns the configured sources in priority order.
func (p *Provider) Sources() []Source { return p.sources }

// GetVersions queries every source concurrently and merges the results:
// a version reported by several sources is taken from the first source in
// configuration order, prerelease versions are dropped unless requested, and
// only the newest maxVersions survive. The result is ascending by version.
// Source failures are returned as *universe.FetchError.
func (p *Provider) GetVersions(ctx context.Context, packageID string, includePrerelease bool, maxVersions int) ([]universe.PackageVersionNode, error) {
	if strings.TrimSpace(packageID) == "" {
		return nil, &universe.FetchError{PackageID: packageID, Err: errors.New("package id must not be empty")}
	}
	if maxVersions <= 0 {
		maxVersions = DefaultMaxVersions
	}

	perSource := make([][]universe.PackageVersionNode, len(p.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range p.sources {
		g.Go(func() error {
			nodes, err := src.Versions(gctx, packageID)
			if err != nil {
				var fe *universe.FetchError
				if errors.As(err, &fe) {
					return err
				}
				return &universe.FetchError{PackageID: packageID, Source: src.Name(), Err: err}
			}
			p.logger.Debug("source versions", "package", packageID, "source", src.Name(), "count", len(nodes))
			perSource[i] = nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return selectNewest(perSource, includePrerelease, maxVersions), nil
}

// selectNewest merges per-source lists (first source wins on equal versions),
// keeps the newest max and returns them ascending.
func selectNewest(perSource [][]universe.PackageVersionNode, includePrerelease bool, maxVersions int) []universe.PackageVersionNode {
	seen := make(map[string]struct{})
	var merged []universe.PackageVersionNode
	for _, nodes := range perSource {
		for _, n := range nodes {
			if !includePrerelease && n.Version.IsPrerelease() {
				continue
			}
			key := strings.ToLower(n.Version.NormalizedString())
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, n)
		}
	}

	// Newest first, publish time as tie-break.
	slices.SortStableFunc(merged, func(a, b universe.PackageVersionNode) int {
		if c := version.Compare(b.Version, a.Version); c != 0 {
			return c
		}
		return b.Published.Compare(a.Published)
	})
	if len(merged) > maxVersions {
		merged = merged[:maxVersions]
	}
	slices.Reverse(merged)
	return merged
}
