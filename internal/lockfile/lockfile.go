// SPDX-License-Identifier: MPL-2.0

// Package lockfile exports a resolution as a TOML lock file. Entries are
// ordered so that every package follows the packages it depends on.
package lockfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/nugraph/nugraph/internal/dag"
	"github.com/nugraph/nugraph/pkg/solver"
	"github.com/nugraph/nugraph/pkg/universe"
)

// FormatVersion is the schema version written to every lock file.
const FormatVersion = 1

// ErrUnsupportedFormat is returned by Read for lock files of another schema version.
var ErrUnsupportedFormat = errors.New("unsupported lock file version")

type (
	// Lock is a serialized resolution.
	Lock struct {
		Version   int       `toml:"version"`
		Framework string    `toml:"framework"`
		Objective int       `toml:"objective"`
		Generated time.Time `toml:"generated"`
		// Cycles lists packages that could not be ordered dependencies-first.
		Cycles   []string `toml:"cycles,omitempty"`
		Packages []Entry  `toml:"package"`
	}

	// Entry is one selected package version.
	Entry struct {
		ID       string `toml:"id"`
		Version  string `toml:"version"`
		Index    int    `toml:"index"`
		Source   string `toml:"source,omitempty"`
		TopLevel bool   `toml:"top_level"`
		// Dependencies are the IDs the selected version depends on.
		Dependencies []string `toml:"dependencies,omitempty"`
	}
)

// FromSolution builds a Lock from a solution of u.
func FromSolution(u *universe.Universe, sol *solver.Solution) (*Lock, error) {
	if u == nil || sol == nil {
		return nil, errors.New("lockfile: universe and solution are required")
	}

	entries := make(map[string]Entry, len(sol.Selection))
	var ids []string
	g := dag.New()
	for _, id := range sol.IDs() {
		sel := sol.Selection[id]
		p, ok := u.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("lockfile: %s is not in the universe", id)
		}
		pkg := u.Package(p)
		if sel.Index < 0 || sel.Index >= len(pkg.Candidates) {
			return nil, fmt.Errorf("lockfile: %s index %d out of range", id, sel.Index)
		}
		node := pkg.Candidates[sel.Index]

		e := Entry{
			ID:       pkg.ID,
			Version:  node.Version.NormalizedString(),
			Index:    sel.Index,
			Source:   node.SourceName,
			TopLevel: pkg.TopLevel,
		}
		g.AddNode(pkg.ID)
		for _, edge := range pkg.Dependencies[sel.Index] {
			target := u.Package(edge.Target).ID
			if !slices.Contains(e.Dependencies, target) {
				e.Dependencies = append(e.Dependencies, target)
			}
		}
		slices.SortFunc(e.Dependencies, compareIDs)
		entries[pkg.ID] = e
		ids = append(ids, pkg.ID)
	}
	for _, id := range ids {
		for _, dep := range entries[id].Dependencies {
			if _, ok := entries[dep]; ok {
				g.AddEdge(dep, id)
			}
		}
	}

	order, err := g.Order()
	lock := &Lock{
		Version:   FormatVersion,
		Framework: u.Framework(),
		Objective: sol.Objective,
		Generated: time.Now().UTC().Truncate(time.Second),
	}
	var cycleErr *dag.CycleError
	if errors.As(err, &cycleErr) {
		lock.Cycles = cycleErr.Cycle
	}
	for _, id := range order {
		lock.Packages = append(lock.Packages, entries[id])
	}
	return lock, nil
}

// Lookup returns the entry for id, matched case-insensitively.
func (l *Lock) Lookup(id string) (Entry, bool) {
	for _, e := range l.Packages {
		if strings.EqualFold(e.ID, id) {
			return e, true
		}
	}
	return Entry{}, false
}

// Write encodes lock as TOML.
func Write(w io.Writer, lock *Lock) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(lock); err != nil {
		return fmt.Errorf("encoding lock file: %w", err)
	}
	return nil
}

// WriteFile writes lock to path, creating parent directories.
func WriteFile(path string, lock *Lock) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating lock file directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating lock file: %w", err)
	}
	if err := Write(f, lock); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a lock file.
func Read(r io.Reader) (*Lock, error) {
	var lock Lock
	if err := toml.NewDecoder(r).Decode(&lock); err != nil {
		return nil, fmt.Errorf("parsing lock file: %w", err)
	}
	if lock.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, lock.Version)
	}
	return &lock, nil
}

// compareIDs orders package IDs case-insensitively.
func compareIDs(a, b string) int {
	return strings.Compare(universe.Key(a), universe.Key(b))
}
