// SPDX-License-Identifier: MPL-2.0

package solver

import (
	"context"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/nugraph/nugraph/pkg/universe"
)

type (
	// implication encodes "selected version implies target in support".
	implication struct {
		target  universe.PkgIndex
		support *bitset.BitSet
	}

	// dependent points back from a target package to one implication on it.
	dependent struct {
		pkg   universe.PkgIndex
		index uint
		dep   int
	}

	// model is the constraint form of a universe.
	model struct {
		counts []int
		// deps[p][i] are the implications of selecting version i of package p.
		deps [][][]implication
		// dependents[q] lists every implication whose target is q.
		dependents  [][]dependent
		objective   []universe.PkgIndex
		order       []universe.PkgIndex
		constraints int
	}

	saved struct {
		pkg  universe.PkgIndex
		prev *bitset.BitSet
	}

	search struct {
		ctx        context.Context
		deadline   time.Time
		checkEvery int64

		m      *model
		domain []*bitset.BitSet
		trail  []saved
		// stamp[p] is the assignment level at which p was last saved to the trail.
		stamp []int
		level int

		queue  []universe.PkgIndex
		queued []bool

		conflict universe.PkgIndex
		rootUB   int

		found         bool
		best          []int
		bestObjective int

		nodes int64
		err   error
	}
)

func newModel(u *universe.Universe, objective []universe.PkgIndex) *model {
	n := u.Len()
	m := &model{
		counts:     make([]int, n),
		deps:       make([][][]implication, n),
		dependents: make([][]dependent, n),
		objective:  objective,
	}

	for p, pkg := range u.Packages() {
		m.counts[p] = len(pkg.Candidates)
	}

	for p, pkg := range u.Packages() {
		m.deps[p] = make([][]implication, len(pkg.Candidates))
		for i, edges := range pkg.Dependencies {
			imps := make([]implication, len(edges))
			for k, e := range edges {
				target := u.Package(e.Target)
				support := bitset.New(uint(len(target.Candidates)))
				for j, cand := range target.Candidates {
					if e.Dependency.Range.Satisfies(cand.Version) {
						support.Set(uint(j))
					}
				}
				imps[k] = implication{target: e.Target, support: support}
				m.dependents[e.Target] = append(m.dependents[e.Target], dependent{
					pkg:   universe.PkgIndex(p),
					index: uint(i),
					dep:   k,
				})
				m.constraints++
			}
			m.deps[p][i] = imps
		}
	}

	// Branch on the optimized packages first, in the caller's order, then on
	// the rest in ID order. Packages without candidates are never branched on.
	inObjective := make([]bool, n)
	for _, p := range objective {
		inObjective[p] = true
		m.order = append(m.order, p)
	}
	for p := range n {
		if !inObjective[p] && m.counts[p] > 0 {
			m.order = append(m.order, universe.PkgIndex(p))
		}
	}
	return m
}

func newSearch(ctx context.Context, m *model, checkEvery int64) *search {
	n := len(m.counts)
	s := &search{
		ctx:        ctx,
		checkEvery: max(checkEvery, 1),
		m:          m,
		domain:     make([]*bitset.BitSet, n),
		stamp:      make([]int, n),
		queued:     make([]bool, n),
		best:       make([]int, n),
	}
	for p, c := range m.counts {
		d := bitset.New(uint(c))
		for i := range c {
			d.Set(uint(i))
		}
		s.domain[p] = d
		s.best[p] = -1
	}
	return s
}

// propagateRoot establishes arc consistency before branching.
func (s *search) propagateRoot() bool {
	for p, c := range s.m.counts {
		if c > 0 {
			s.enqueue(universe.PkgIndex(p))
		}
	}
	if !s.propagate() {
		return false
	}
	s.rootUB = s.upperBound()
	return true
}

func (s *search) run() {
	s.dfs(0)
}

func (s *search) dfs(depth int) {
	s.nodes++
	if (s.nodes == 1 || s.nodes%s.checkEvery == 0) && !s.checkBudget() {
		return
	}
	if s.found && s.upperBound() <= s.bestObjective {
		return
	}
	if depth == len(s.m.order) {
		s.record()
		return
	}

	p := s.m.order[depth]
	for _, v := range s.descending(p) {
		mark := len(s.trail)
		s.level++
		if s.assign(p, v) {
			s.dfs(depth + 1)
		}
		s.undo(mark)

		if s.err != nil || (s.found && s.bestObjective == s.rootUB) {
			return
		}
		if s.found && s.upperBound() <= s.bestObjective {
			return
		}
	}
}

func (s *search) checkBudget() bool {
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.err = context.DeadlineExceeded
		return false
	}
	return true
}

// record stores the current complete assignment as the incumbent.
func (s *search) record() {
	for p, d := range s.domain {
		if s.m.counts[p] == 0 {
			s.best[p] = -1
			continue
		}
		v, _ := d.NextSet(0)
		s.best[p] = int(v)
	}
	s.bestObjective = s.upperBound()
	s.found = true
}

// upperBound is the objective reached if every optimized package could take
// the newest value left in its domain.
func (s *search) upperBound() int {
	ub := 0
	for _, p := range s.m.objective {
		if v, ok := s.domain[p].PreviousSet(uint(s.m.counts[p] - 1)); ok {
			ub += int(v)
		}
	}
	return ub
}

// descending snapshots the domain of p from newest to oldest.
func (s *search) descending(p universe.PkgIndex) []uint {
	d := s.domain[p]
	out := make([]uint, 0, d.Count())
	for i, ok := d.PreviousSet(uint(s.m.counts[p] - 1)); ok; i, ok = d.PreviousSet(i - 1) {
		out = append(out, i)
		if i == 0 {
			break
		}
	}
	return out
}

func (s *search) assign(p universe.PkgIndex, v uint) bool {
	d := s.domain[p]
	if !d.Test(v) {
		return false
	}
	if d.Count() == 1 {
		return true
	}
	s.save(p)
	d.ClearAll()
	d.Set(v)
	s.enqueue(p)
	return s.propagate()
}

func (s *search) save(p universe.PkgIndex) {
	if s.level == 0 || s.stamp[p] == s.level {
		return
	}
	s.trail = append(s.trail, saved{pkg: p, prev: s.domain[p].Clone()})
	s.stamp[p] = s.level
}

func (s *search) undo(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		e := s.trail[i]
		s.domain[e.pkg] = e.prev
		s.stamp[e.pkg] = 0
	}
	s.trail = s.trail[:mark]
}

func (s *search) enqueue(p universe.PkgIndex) {
	if !s.queued[p] {
		s.queued[p] = true
		s.queue = append(s.queue, p)
	}
}

// propagate runs the implication rules to a fixpoint. It reports false and
// sets conflict when a domain becomes empty.
func (s *search) propagate() bool {
	for len(s.queue) > 0 {
		x := s.queue[0]
		s.queue = s.queue[1:]
		s.queued[x] = false

		// A fixed package forces the supports of its selected version.
		if s.domain[x].Count() == 1 {
			v, _ := s.domain[x].NextSet(0)
			for _, imp := range s.m.deps[x][v] {
				if !s.restrict(imp.target, imp.support) {
					return s.fail()
				}
			}
		}

		// A version whose dependency lost all support in x is eliminated.
		for _, dp := range s.m.dependents[x] {
			if !s.domain[dp.pkg].Test(dp.index) {
				continue
			}
			support := s.m.deps[dp.pkg][dp.index][dp.dep].support
			if s.domain[x].IntersectionCardinality(support) == 0 {
				if !s.remove(dp.pkg, dp.index) {
					return s.fail()
				}
			}
		}
	}
	return true
}

func (s *search) fail() bool {
	for _, p := range s.queue {
		s.queued[p] = false
	}
	s.queue = s.queue[:0]
	return false
}

func (s *search) remove(p universe.PkgIndex, v uint) bool {
	s.save(p)
	s.domain[p].Clear(v)
	if s.domain[p].None() {
		s.conflict = p
		return false
	}
	s.enqueue(p)
	return true
}

func (s *search) restrict(p universe.PkgIndex, support *bitset.BitSet) bool {
	d := s.domain[p]
	if d.IntersectionCardinality(support) == d.Count() {
		return true
	}
	s.save(p)
	s.domain[p].InPlaceIntersection(support)
	if s.domain[p].None() {
		s.conflict = p
		return false
	}
	s.enqueue(p)
	return true
}
