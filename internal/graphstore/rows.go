// SPDX-License-Identifier: MPL-2.0

package graphstore

import (
	"time"

	"github.com/nugraph/nugraph/pkg/solver"
	"github.com/nugraph/nugraph/pkg/universe"
)

// Query parameters are plain maps so they can be passed to UNWIND as-is.

func packageRows(u *universe.Universe) []map[string]any {
	rows := make([]map[string]any, 0, u.Len())
	for _, pkg := range u.Packages() {
		rows = append(rows, map[string]any{
			"id":       pkg.ID,
			"key":      universe.Key(pkg.ID),
			"topLevel": pkg.TopLevel,
		})
	}
	return rows
}

func versionRows(u *universe.Universe) []map[string]any {
	rows := make([]map[string]any, 0, u.VersionCount())
	for _, pkg := range u.Packages() {
		for _, node := range pkg.Candidates {
			row := map[string]any{
				"key":     universe.Key(pkg.ID),
				"id":      pkg.ID,
				"version": node.Version.NormalizedString(),
				"source":  node.SourceName,
			}
			if node.HasPublished() {
				row["published"] = node.Published.UTC().Format(time.RFC3339)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func dependencyRows(u *universe.Universe) []map[string]any {
	rows := make([]map[string]any, 0, u.EdgeCount())
	for _, pkg := range u.Packages() {
		for i, edges := range pkg.Dependencies {
			from := pkg.Candidates[i].Version.NormalizedString()
			for _, e := range edges {
				rng := e.Dependency.Range
				row := map[string]any{
					"key":          universe.Key(pkg.ID),
					"version":      from,
					"target":       universe.Key(u.Package(e.Target).ID),
					"depId":        e.Dependency.PackageID,
					"range":        rng.NormalizedString(),
					"minInclusive": rng.MinInclusive(),
					"maxInclusive": rng.MaxInclusive(),
				}
				if v, ok := rng.Min(); ok {
					row["min"] = v.NormalizedString()
				}
				if v, ok := rng.Max(); ok {
					row["max"] = v.NormalizedString()
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func selectionRows(sol *solver.Solution) []map[string]any {
	rows := make([]map[string]any, 0, len(sol.Selection))
	for _, id := range sol.IDs() {
		sel := sol.Selection[id]
		rows = append(rows, map[string]any{
			"key":     universe.Key(id),
			"version": sel.Version,
			"index":   sel.Index,
		})
	}
	return rows
}

// batches splits rows into chunks of at most size.
func batches(rows []map[string]any, size int) [][]map[string]any {
	if size <= 0 {
		size = len(rows)
	}
	var out [][]map[string]any
	for len(rows) > 0 {
		n := min(size, len(rows))
		out = append(out, rows[:n])
		rows = rows[n:]
	}
	return out
}
