// SPDX-License-Identifier: MPL-2.0

package universe

import (
	"cmp"
	"slices"

	"github.com/nugraph/nugraph/pkg/version"
)

type (
	// PkgIndex addresses a package within a Universe. Indices are dense,
	// start at zero and follow case-insensitive package ID order.
	PkgIndex int

	// VersionKey addresses one candidate version of one package in a Definition.
	VersionKey struct {
		PackageID string
		Index     int
	}

	// Definition is the raw input to New. Package IDs are matched
	// case-insensitively throughout.
	Definition struct {
		// Framework is the target framework the effective dependencies were reduced for.
		Framework string
		// TopLevel lists the requested packages in request order.
		TopLevel []string
		// Candidates maps every package in the closure to its candidate versions,
		// strictly ascending. A package may have no candidates.
		Candidates map[string][]PackageVersionNode
		// Effective holds the dependency list for every (package, index) pair.
		Effective map[VersionKey][]DependencyInfo
	}

	// Edge is an effective dependency resolved to the package it targets.
	Edge struct {
		Target     PkgIndex
		Dependency DependencyInfo
	}

	// Package is one package of a Universe.
	Package struct {
		ID         string
		Candidates []PackageVersionNode
		// Dependencies[i] is the effective dependency list of Candidates[i].
		Dependencies [][]Edge
		TopLevel     bool
	}

	// Universe is the closed, immutable resolution problem instance. Slices
	// returned by its accessors are shared and must not be modified.
	Universe struct {
		framework string
		packages  []Package
		byKey     map[string]PkgIndex
		topLevel  []PkgIndex
	}
)

// New validates def and freezes it into a Universe. Any structural problem
// (unordered or duplicate candidates, a missing effective entry, a dependency
// on a package outside the closure, an unknown top-level package) is reported
// as an InvariantViolationError.
func New(def Definition) (*Universe, error) {
	u := &Universe{
		framework: def.Framework,
		byKey:     make(map[string]PkgIndex, len(def.Candidates)),
	}

	ids := make([]string, 0, len(def.Candidates))
	seen := make(map[string]string, len(def.Candidates))
	for id := range def.Candidates {
		k := Key(id)
		if k == "" {
			return nil, invariantf("empty package id")
		}
		if prev, dup := seen[k]; dup {
			return nil, invariantf("package %q listed twice (as %q)", id, prev)
		}
		seen[k] = id
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int { return cmp.Compare(Key(a), Key(b)) })

	u.packages = make([]Package, len(ids))
	for i, id := range ids {
		nodes := def.Candidates[id]
		if err := checkAscending(id, nodes); err != nil {
			return nil, err
		}
		u.packages[i] = Package{ID: id, Candidates: nodes, Dependencies: make([][]Edge, len(nodes))}
		u.byKey[Key(id)] = PkgIndex(i)
	}

	effective := make(map[VersionKey][]DependencyInfo, len(def.Effective))
	for key, deps := range def.Effective {
		p, ok := u.byKey[Key(key.PackageID)]
		if !ok {
			return nil, invariantf("effective dependencies for unknown package %q", key.PackageID)
		}
		if key.Index < 0 || key.Index >= len(u.packages[p].Candidates) {
			return nil, invariantf("effective dependencies for %s index %d out of range", key.PackageID, key.Index)
		}
		norm := VersionKey{PackageID: Key(key.PackageID), Index: key.Index}
		if _, dup := effective[norm]; dup {
			return nil, invariantf("effective dependencies for %s index %d listed twice", key.PackageID, key.Index)
		}
		effective[norm] = deps
	}

	for p := range u.packages {
		pkg := &u.packages[p]
		for i := range pkg.Candidates {
			deps, ok := effective[VersionKey{PackageID: Key(pkg.ID), Index: i}]
			if !ok {
				return nil, invariantf("missing effective dependencies for %s index %d", pkg.ID, i)
			}
			edges := make([]Edge, 0, len(deps))
			for _, d := range deps {
				target, ok := u.byKey[Key(d.PackageID)]
				if !ok {
					return nil, invariantf("%s %s depends on %s which is not in the universe",
						pkg.ID, pkg.Candidates[i].Version.NormalizedString(), d.PackageID)
				}
				edges = append(edges, Edge{Target: target, Dependency: d})
			}
			pkg.Dependencies[i] = edges
		}
	}

	for _, id := range def.TopLevel {
		p, ok := u.byKey[Key(id)]
		if !ok {
			return nil, invariantf("top-level package %q is not in the universe", id)
		}
		if u.packages[p].TopLevel {
			continue
		}
		u.packages[p].TopLevel = true
		u.topLevel = append(u.topLevel, p)
	}

	return u, nil
}

func checkAscending(id string, nodes []PackageVersionNode) error {
	for i, n := range nodes {
		if !n.Version.IsValid() {
			return invariantf("%s candidate %d has no valid version", id, i)
		}
		if i > 0 && version.Compare(nodes[i-1].Version, n.Version) >= 0 {
			return invariantf("%s candidates not strictly ascending at index %d (%s then %s)",
				id, i, nodes[i-1].Version.NormalizedString(), n.Version.NormalizedString())
		}
	}
	return nil
}

// Framework returns the target framework the universe was built for.
func (u *Universe) Framework() string { return u.framework }

// Len returns the number of packages.
func (u *Universe) Len() int { return len(u.packages) }

// Package returns the package at p.
func (u *Universe) Package(p PkgIndex) *Package { return &u.packages[p] }

// Packages returns all packages in index order.
func (u *Universe) Packages() []Package { return u.packages }

// Lookup returns the index of a package by case-insensitive ID.
func (u *Universe) Lookup(id string) (PkgIndex, bool) {
	p, ok := u.byKey[Key(id)]
	return p, ok
}

// TopLevel returns the top-level packages in request order.
func (u *Universe) TopLevel() []PkgIndex { return u.topLevel }

// Candidates returns the ascending candidate versions of a package by ID.
func (u *Universe) Candidates(id string) ([]PackageVersionNode, bool) {
	p, ok := u.Lookup(id)
	if !ok {
		return nil, false
	}
	return u.packages[p].Candidates, true
}

// EffectiveDependencies returns the dependency list of version index i of
// package id under the universe's framework.
func (u *Universe) EffectiveDependencies(id string, i int) ([]DependencyInfo, bool) {
	p, ok := u.Lookup(id)
	if !ok || i < 0 || i >= len(u.packages[p].Candidates) {
		return nil, false
	}
	edges := u.packages[p].Dependencies[i]
	out := make([]DependencyInfo, len(edges))
	for j, e := range edges {
		out[j] = e.Dependency
	}
	return out, true
}

// VersionCount returns the total number of candidate versions across all packages.
func (u *Universe) VersionCount() int {
	n := 0
	for i := range u.packages {
		n += len(u.packages[i].Candidates)
	}
	return n
}

// EdgeCount returns the total number of effective dependency edges.
func (u *Universe) EdgeCount() int {
	n := 0
	for i := range u.packages {
		for _, deps := range u.packages[i].Dependencies {
			n += len(deps)
		}
	}
	return n
}
