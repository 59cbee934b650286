// SPDX-License-Identifier: MPL-2.0

package solver

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nugraph/nugraph/pkg/universe"
)

// DefaultTimeout is the search budget used when no WithTimeout option is given.
const DefaultTimeout = 30 * time.Second

type (
	// Option configures a Solver.
	Option func(*Solver)

	// Solver finds the newest mutually compatible versions in a universe.
	// A Solver holds no per-solve state and may be shared between goroutines.
	Solver struct {
		timeout time.Duration
		logger  *slog.Logger
		// checkEvery is the number of search nodes between budget checks.
		checkEvery int64
	}

	// Selection is the chosen candidate of one package.
	Selection struct {
		// Index is the position of the version in the ascending candidate list.
		Index int
		// Version is the normalized version string.
		Version string
	}

	// Solution is the optimal assignment of a universe.
	Solution struct {
		// Selection maps every package with at least one candidate to its pick.
		Selection map[string]Selection
		// Objective is the sum of the selected indices over the optimized packages.
		Objective int
		// Explored is the number of search nodes visited.
		Explored int64
		Elapsed  time.Duration
	}
)

// WithTimeout bounds the search. Zero or negative disables the solver's own
// budget; the context deadline still applies.
func WithTimeout(d time.Duration) Option {
	return func(s *Solver) { s.timeout = d }
}

// WithLogger sets the logger used for search diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Solver.
func New(opts ...Option) *Solver {
	s := &Solver{
		timeout:    DefaultTimeout,
		logger:     slog.New(slog.DiscardHandler),
		checkEvery: 256,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SolveForNewest maximizes the selected indices of the universe's top-level packages.
func (s *Solver) SolveForNewest(ctx context.Context, u *universe.Universe) (*Solution, error) {
	return s.Solve(ctx, u, nil)
}

// Solve maximizes the sum of selected indices over optimizeOver, or over the
// top-level packages when optimizeOver is empty.
//
// Among assignments with the optimal objective the one that is
// lexicographically newest is returned, comparing the optimized packages in
// the given order first and the remaining packages by ID. Repeated solves of
// the same universe therefore yield the same selection.
func (s *Solver) Solve(ctx context.Context, u *universe.Universe, optimizeOver []string) (*Solution, error) {
	if u == nil {
		return nil, &universe.InvariantViolationError{Reason: "nil universe"}
	}
	start := time.Now()

	objective, err := objectivePackages(u, optimizeOver)
	if err != nil {
		return nil, err
	}
	if err := checkEmptyPackages(u, objective); err != nil {
		return nil, err
	}

	m := newModel(u, objective)
	sr := newSearch(ctx, m, s.checkEvery)
	if s.timeout > 0 {
		sr.deadline = start.Add(s.timeout)
	}

	s.logger.Debug("solving",
		"packages", u.Len(),
		"objective_packages", len(objective),
		"constraints", m.constraints)

	if !sr.propagateRoot() {
		id := u.Package(sr.conflict).ID
		return nil, &InfeasibleError{
			Reason:   "dependency ranges exclude every candidate version",
			Packages: []string{id},
		}
	}

	sr.run()

	elapsed := time.Since(start)
	if sr.err != nil {
		if errors.Is(sr.err, context.Canceled) {
			return nil, &universe.CancelledError{Cause: sr.err}
		}
		budget := s.timeout
		if budget <= 0 || errors.Is(sr.err, context.DeadlineExceeded) {
			budget = elapsed.Round(time.Millisecond)
		}
		s.logger.Debug("solver budget exhausted", "nodes", sr.nodes, "elapsed", elapsed)
		return nil, &TimeoutError{Budget: budget, Explored: sr.nodes}
	}
	if !sr.found {
		ids := make([]string, len(objective))
		for i, p := range objective {
			ids[i] = u.Package(p).ID
		}
		return nil, &InfeasibleError{
			Reason:   "no combination of candidate versions satisfies every dependency range",
			Packages: ids,
		}
	}

	sol := project(u, sr.best, sr.bestObjective)
	sol.Explored = sr.nodes
	sol.Elapsed = elapsed

	s.logger.Info("solved",
		"objective", sol.Objective,
		"selected", len(sol.Selection),
		"nodes", sr.nodes,
		"duration", elapsed.Round(time.Millisecond))
	return sol, nil
}

// objectivePackages resolves the optimized package IDs, dropping duplicates.
func objectivePackages(u *universe.Universe, ids []string) ([]universe.PkgIndex, error) {
	if len(ids) == 0 {
		return slices.Clone(u.TopLevel()), nil
	}
	out := make([]universe.PkgIndex, 0, len(ids))
	for _, id := range ids {
		p, ok := u.Lookup(id)
		if !ok {
			return nil, &universe.InvariantViolationError{Reason: fmt.Sprintf("optimized package %q is not in the universe", id)}
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// checkEmptyPackages rejects universes in which a package without candidates
// is optimized over or targeted by any effective dependency.
func checkEmptyPackages(u *universe.Universe, objective []universe.PkgIndex) error {
	empty := make(map[universe.PkgIndex]bool)
	for _, p := range objective {
		if len(u.Package(p).Candidates) == 0 {
			empty[p] = true
		}
	}
	for _, pkg := range u.Packages() {
		for _, edges := range pkg.Dependencies {
			for _, e := range edges {
				if len(u.Package(e.Target).Candidates) == 0 {
					empty[e.Target] = true
				}
			}
		}
	}
	if len(empty) == 0 {
		return nil
	}

	ids := make([]string, 0, len(empty))
	for p := range empty {
		ids = append(ids, u.Package(p).ID)
	}
	slices.SortFunc(ids, func(a, b string) int { return cmp.Compare(strings.ToLower(a), strings.ToLower(b)) })
	return &InfeasibleError{Reason: "required packages have no candidate versions", Packages: ids}
}

func project(u *universe.Universe, assignment []int, objective int) *Solution {
	sol := &Solution{Selection: make(map[string]Selection), Objective: objective}
	for p, idx := range assignment {
		if idx < 0 {
			continue
		}
		pkg := u.Package(universe.PkgIndex(p))
		sol.Selection[pkg.ID] = Selection{Index: idx, Version: pkg.Candidates[idx].Version.NormalizedString()}
	}
	return sol
}

// IDs returns the selected package IDs sorted case-insensitively.
func (s *Solution) IDs() []string {
	ids := make([]string, 0, len(s.Selection))
	for id := range s.Selection {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int { return cmp.Compare(strings.ToLower(a), strings.ToLower(b)) })
	return ids
}

// Lookup returns the selection of a package by case-insensitive ID.
func (s *Solution) Lookup(id string) (Selection, bool) {
	if sel, ok := s.Selection[id]; ok {
		return sel, true
	}
	for k, sel := range s.Selection {
		if strings.EqualFold(k, id) {
			return sel, true
		}
	}
	return Selection{}, false
}

// Verify checks that sol selects a valid index for every package with
// candidates and that every effective dependency of a selected version is
// met by the selected version of its target.
func Verify(u *universe.Universe, sol *Solution) error {
	for _, pkg := range u.Packages() {
		sel, ok := sol.Selection[pkg.ID]
		if len(pkg.Candidates) == 0 {
			if ok {
				return fmt.Errorf("%s has no candidates but is selected", pkg.ID)
			}
			continue
		}
		if !ok {
			return fmt.Errorf("%s is not selected", pkg.ID)
		}
		if sel.Index < 0 || sel.Index >= len(pkg.Candidates) {
			return fmt.Errorf("%s selection index %d out of range", pkg.ID, sel.Index)
		}
		for _, e := range pkg.Dependencies[sel.Index] {
			target := u.Package(e.Target)
			tsel, ok := sol.Selection[target.ID]
			if !ok || tsel.Index < 0 || tsel.Index >= len(target.Candidates) {
				return fmt.Errorf("%s %s requires %s which has no valid selection", pkg.ID, sel.Version, target.ID)
			}
			if !e.Dependency.Range.Satisfies(target.Candidates[tsel.Index].Version) {
				return fmt.Errorf("%s %s requires %s %s but %s is selected",
					pkg.ID, sel.Version, target.ID, e.Dependency.Range, tsel.Version)
			}
		}
	}
	return nil
}
