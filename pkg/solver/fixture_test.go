// SPDX-License-Identifier: MPL-2.0

package solver

import (
	"testing"

	"github.com/nugraph/nugraph/pkg/universe"
	"github.com/nugraph/nugraph/pkg/version"
)

// fixture assembles a universe definition by hand.
type fixture struct {
	def universe.Definition
}

func newFixture(top ...string) *fixture {
	return &fixture{def: universe.Definition{
		Framework:  "net8.0",
		TopLevel:   top,
		Candidates: make(map[string][]universe.PackageVersionNode),
		Effective:  make(map[universe.VersionKey][]universe.DependencyInfo),
	}}
}

// pkg registers a package with ascending versions and no dependencies.
func (f *fixture) pkg(id string, versions ...string) *fixture {
	nodes := make([]universe.PackageVersionNode, len(versions))
	for i, v := range versions {
		nodes[i] = universe.PackageVersionNode{PackageID: id, Version: version.MustParse(v), SourceName: "test"}
		f.def.Effective[universe.VersionKey{PackageID: id, Index: i}] = nil
	}
	f.def.Candidates[id] = nodes
	return f
}

// dep adds an effective dependency to version index of id.
func (f *fixture) dep(id string, index int, target, rng string) *fixture {
	key := universe.VersionKey{PackageID: id, Index: index}
	f.def.Effective[key] = append(f.def.Effective[key], universe.DependencyInfo{
		PackageID: target,
		Range:     version.MustParseRange(rng),
	})
	return f
}

// depAll adds the same dependency to every version of id.
func (f *fixture) depAll(id, target, rng string) *fixture {
	for i := range f.def.Candidates[id] {
		f.dep(id, i, target, rng)
	}
	return f
}

func (f *fixture) build(t *testing.T) *universe.Universe {
	t.Helper()

	u, err := universe.New(f.def)
	if err != nil {
		t.Fatalf("universe.New() unexpected error: %v", err)
	}
	return u
}
