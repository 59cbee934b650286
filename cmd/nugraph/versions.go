// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nugraph/nugraph/internal/config"
	"github.com/nugraph/nugraph/pkg/framework"
	"github.com/nugraph/nugraph/pkg/universe"
	"github.com/nugraph/nugraph/pkg/version"
)

type versionsFlags struct {
	sources           []string
	includePrerelease bool
	maxVersions       int
	rangeExpr         string
	framework         string
	output            string
}

type versionDocEntry struct {
	Version    string   `json:"version"`
	Published  string   `json:"published,omitempty"`
	Source     string   `json:"source"`
	Frameworks []string `json:"frameworks"`
	// Group is the dependency group selected for --framework.
	Group        *string  `json:"group,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Satisfies    *bool    `json:"satisfies,omitempty"`
	Best         bool     `json:"best,omitempty"`
}

func newVersionsCommand(app *App) *cobra.Command {
	var f versionsFlags

	cmd := &cobra.Command{
		Use:   "versions <package-id>",
		Short: "List the candidate versions of a package",
		Long: `List the versions of a package that resolve would consider, newest first.
With --range the versions satisfying the range are marked and the best one
is highlighted. With --framework the dependency group that applies to the
framework is shown for each version.`,
		Example: `  nugraph versions Serilog
  nugraph versions Newtonsoft.Json --range "[12.0,13.0)"
  nugraph versions Polly --framework net472 --include-prerelease`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classifyError(app.listVersions(cmd, f, args[0]))
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&f.sources, "source", "s", nil, "package source URL or directory, replaces configured sources (repeatable)")
	flags.BoolVar(&f.includePrerelease, "include-prerelease", false, "include prerelease versions")
	flags.IntVar(&f.maxVersions, "max-versions", 0, "newest versions listed")
	flags.StringVarP(&f.rangeExpr, "range", "r", "", "mark the versions satisfying this version range")
	flags.StringVarP(&f.framework, "framework", "f", "", "show the dependency group that applies to this framework")
	flags.StringVarP(&f.output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func (a *App) listVersions(cmd *cobra.Command, f versionsFlags, arg string) error {
	if f.output != outputTable && f.output != outputJSON {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("unknown output format %q (want %s or %s)", f.output, outputTable, outputJSON)}
	}
	ids, err := parsePackageIDs([]string{arg})
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("expected one package id, got %d", len(ids))}
	}
	id := ids[0]

	var rng *version.Range
	if f.rangeExpr != "" {
		r, err := version.ParseRange(f.rangeExpr)
		if err != nil {
			return err
		}
		rng = &r
	}
	if f.framework != "" {
		if _, err := framework.Parse(f.framework); err != nil {
			return err
		}
	}

	cfg := a.config()
	sources := cfg.Sources
	if cmd.Flags().Changed("source") {
		sources = sourcesFromFlags(f.sources)
	}
	includePre := cfg.Resolve.IncludePrerelease
	if cmd.Flags().Changed("include-prerelease") {
		includePre = f.includePrerelease
	}
	maxVersions := cfg.Resolve.EffectiveMaxVersions()
	if f.maxVersions > 0 {
		maxVersions = f.maxVersions
	}

	nodes, err := a.fetchVersions(cmd.Context(), sources, cfg.HTTP, id, includePre, maxVersions)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("no versions of %s found", id)}
	}

	entries := versionEntries(nodes, rng, f.framework)
	if f.output == outputJSON {
		return writeJSON(a.stdout, entries)
	}
	a.renderVersions(nodes[0].PackageID, entries, rng != nil, f.framework != "")
	return nil
}

func (a *App) fetchVersions(ctx context.Context, sources []config.SourceConfig, httpCfg config.HTTPConfig, id string, includePre bool, maxVersions int) ([]universe.PackageVersionNode, error) {
	feeds, err := a.newFeedStack(sources, httpCfg)
	if err != nil {
		return nil, err
	}
	defer feeds.close(a)

	nodes, err := feeds.provider.GetVersions(ctx, id, includePre, maxVersions)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &universe.CancelledError{Cause: ctx.Err()}
		}
		return nil, err
	}
	return nodes, nil
}

// versionEntries describes nodes newest first.
func versionEntries(nodes []universe.PackageVersionNode, rng *version.Range, target string) []versionDocEntry {
	var best version.Version
	hasBest := false
	if rng != nil {
		all := make([]version.Version, len(nodes))
		for i, n := range nodes {
			all[i] = n.Version
		}
		best, hasBest = rng.FindBest(all)
	}

	oracle := framework.NewOracle()
	out := make([]versionDocEntry, 0, len(nodes))
	for _, n := range slices.Backward(nodes) {
		e := versionDocEntry{
			Version:    n.Version.NormalizedString(),
			Source:     n.SourceName,
			Frameworks: groupLabels(n),
		}
		if n.HasPublished() {
			e.Published = publishedLabel(n)
		}
		if rng != nil {
			ok := rng.Satisfies(n.Version)
			e.Satisfies = &ok
			e.Best = hasBest && n.Version.Equal(best)
		}
		if target != "" {
			group := "none"
			if moniker, ok := oracle.SelectNearest(n.Frameworks(), target); ok {
				group = groupLabel(moniker)
				for _, g := range n.DependencyGroups {
					if g.FrameworkMoniker == moniker {
						for _, d := range g.Dependencies {
							e.Dependencies = append(e.Dependencies, d.String())
						}
						break
					}
				}
			}
			e.Group = &group
		}
		out = append(out, e)
	}
	return out
}

func groupLabels(n universe.PackageVersionNode) []string {
	labels := make([]string, 0, len(n.DependencyGroups))
	for _, m := range n.Frameworks() {
		labels = append(labels, groupLabel(m))
	}
	return labels
}

// groupLabel shows a group moniker in its short form, "any" for agnostic groups.
func groupLabel(moniker string) string {
	fw, err := framework.Parse(moniker)
	if err != nil {
		return moniker
	}
	return fw.ShortFolderName()
}

func (a *App) renderVersions(id string, entries []versionDocEntry, withRange, withFramework bool) {
	p := a.palette()
	fmt.Fprintln(a.stdout, p.title.Render(id)+p.subtitle.Render(fmt.Sprintf(" (%d versions)", len(entries))))

	headers := []string{"VERSION", "PUBLISHED", "SOURCE"}
	if withFramework {
		headers = append(headers, "GROUP", "DEPENDENCIES")
	} else {
		headers = append(headers, "FRAMEWORKS")
	}
	if withRange {
		headers = append(headers, "MATCH")
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		published := e.Published
		if published == "" {
			published = "-"
		}
		row := []string{e.Version, published, e.Source}
		if withFramework {
			deps := strings.Join(e.Dependencies, ", ")
			if deps == "" {
				deps = "-"
			}
			row = append(row, *e.Group, deps)
		} else {
			row = append(row, strings.Join(e.Frameworks, ", "))
		}
		if withRange {
			match := ""
			switch {
			case e.Best:
				match = "best"
			case e.Satisfies != nil && *e.Satisfies:
				match = "yes"
			}
			row = append(row, match)
		}
		rows[i] = row
	}

	t := newTable(p, func(row int) (lipgloss.Style, bool) {
		switch {
		case entries[row].Best:
			return p.success, true
		case strings.Contains(entries[row].Version, "-"):
			return p.warning, true
		}
		return lipgloss.Style{}, false
	}, headers...).Rows(rows...)
	fmt.Fprintln(a.stdout, t.Render())
}
