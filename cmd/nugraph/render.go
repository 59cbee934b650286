// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nugraph/nugraph/pkg/universe"
)

type (
	// selectionDocument is the JSON rendering of a resolution.
	selectionDocument struct {
		Framework    string              `json:"framework"`
		Objective    int                 `json:"objective"`
		ResolutionID string              `json:"resolutionId,omitempty"`
		LockFile     string              `json:"lockFile,omitempty"`
		Packages     []selectionDocEntry `json:"packages"`
	}

	selectionDocEntry struct {
		ID         string `json:"id"`
		Version    string `json:"version"`
		Index      int    `json:"index"`
		Candidates int    `json:"candidates"`
		Source     string `json:"source,omitempty"`
		TopLevel   bool   `json:"topLevel"`
	}
)

// newTable returns a bordered table whose header row uses the title style.
// highlight, when set, picks the style of a data row.
func newTable(p palette, highlight func(row int) (lipgloss.Style, bool), headers ...string) *table.Table {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.border).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.title.Padding(0, 1)
			}
			if highlight != nil {
				if s, ok := highlight(row); ok {
					return s.Padding(0, 1)
				}
			}
			return cell
		})
}

// selectionEntries lists the selected versions sorted case-insensitively by ID.
func selectionEntries(res *resolveResult) []selectionDocEntry {
	u, sol := res.Universe, res.Solution
	out := make([]selectionDocEntry, 0, len(sol.Selection))
	for _, id := range sol.IDs() {
		sel := sol.Selection[id]
		e := selectionDocEntry{ID: id, Version: sel.Version, Index: sel.Index}
		if p, ok := u.Lookup(id); ok {
			pkg := u.Package(p)
			e.Candidates = len(pkg.Candidates)
			e.Source = pkg.Candidates[sel.Index].SourceName
			e.TopLevel = pkg.TopLevel
		}
		out = append(out, e)
	}
	return out
}

func (a *App) renderResolve(res *resolveResult, output string) error {
	entries := selectionEntries(res)
	lockPath := ""
	if res.Lock != nil {
		lockPath = res.lockPath
	}

	if output == outputJSON {
		return writeJSON(a.stdout, selectionDocument{
			Framework:    res.Universe.Framework(),
			Objective:    res.Solution.Objective,
			ResolutionID: res.ResolutionID,
			LockFile:     lockPath,
			Packages:     entries,
		})
	}

	p := a.palette()
	fmt.Fprintln(a.stdout, p.title.Render("Newest compatible selection for "+res.Universe.Framework())+
		p.subtitle.Render(fmt.Sprintf(" (packages=%d, objective=%d)", len(entries), res.Solution.Objective)))

	prerelease := make([]bool, len(entries))
	rows := make([][]string, len(entries))
	for i, e := range entries {
		top := ""
		if e.TopLevel {
			top = "yes"
		}
		rows[i] = []string{e.ID, e.Version, fmt.Sprintf("%d/%d", e.Index+1, e.Candidates), e.Source, top}
		if pkgIdx, ok := res.Universe.Lookup(e.ID); ok {
			prerelease[i] = res.Universe.Package(pkgIdx).Candidates[e.Index].Version.IsPrerelease()
		}
	}
	t := newTable(p, func(row int) (lipgloss.Style, bool) {
		return p.warning, prerelease[row]
	}, "PACKAGE", "VERSION", "RANK", "SOURCE", "TOP").Rows(rows...)
	fmt.Fprintln(a.stdout, t.Render())

	if a.config().UI.Verbose {
		fmt.Fprintln(a.stdout, p.verbose.Render(fmt.Sprintf("%d packages, %d candidate versions, %d edges; %d search nodes in %s",
			res.Universe.Len(), res.Universe.VersionCount(), res.Universe.EdgeCount(),
			res.Solution.Explored, res.Solution.Elapsed.Round(time.Millisecond))))
	}
	if res.ResolutionID != "" {
		fmt.Fprintln(a.stdout, p.success.Render("Recorded resolution ")+p.key.Render(res.ResolutionID))
	}
	if lockPath != "" {
		fmt.Fprintln(a.stdout, p.success.Render("Wrote lock file ")+p.key.Render(lockPath))
		if len(res.Lock.Cycles) > 0 {
			fmt.Fprintln(a.stdout, p.warning.Render("Dependency cycle between: ")+fmt.Sprint(res.Lock.Cycles))
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// publishedLabel formats a publish time for tables, "-" when unknown.
func publishedLabel(n universe.PackageVersionNode) string {
	if !n.HasPublished() {
		return "-"
	}
	return n.Published.UTC().Format(time.DateOnly)
}

