// SPDX-License-Identifier: MPL-2.0

package universe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nugraph/nugraph/pkg/framework"
)

func diamondProvider() *fakeProvider {
	return newFakeProvider(
		node("A", "1.0.0", group("net8.0", dep("B", "[1.0.0, )"))),
		node("A", "2.0.0", group("net8.0", dep("B", "[2.0.0, )"), dep("C", "1.0"))),
		node("B", "1.0.0", group("net8.0", dep("D", "1.0"))),
		node("B", "2.0.0", group("net8.0", dep("d", "1.0"), dep("C", "1.0"))),
		node("C", "1.0.0", group("", dep("D", "[1.0.0, 2.0.0)"))),
		node("D", "1.0.0"),
		node("D", "1.5.0"),
	)
}

func TestBuild_ClosureFetchesEachPackageOnce(t *testing.T) {
	t.Parallel()

	prov := diamondProvider()
	b := NewBuilder(prov, exactOracle{}, "net8.0")

	u, err := b.Build(context.Background(), BuildRequest{Roots: []string{"A", "a", " A "}, MaxVersions: 20})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	if u.Len() != 4 {
		t.Fatalf("Len() = %d, want 4\n%s", u.Len(), describe(u))
	}
	for _, id := range []string{"A", "B", "C", "D"} {
		if _, ok := u.Lookup(id); !ok {
			t.Errorf("package %s missing from universe", id)
		}
		if got := prov.callCount(id); got != 1 {
			t.Errorf("package %s fetched %d times, want 1", id, got)
		}
	}
	if prov.totalCalls() != 4 {
		t.Errorf("total fetches = %d, want 4", prov.totalCalls())
	}

	top := u.TopLevel()
	if len(top) != 1 || u.Package(top[0]).ID != "A" {
		t.Errorf("TopLevel() = %v, want only A", top)
	}

	deps, ok := u.EffectiveDependencies("a", 1)
	if !ok || len(deps) != 2 {
		t.Fatalf("EffectiveDependencies(A, 1) = %v, %v, want 2 deps", deps, ok)
	}
	deps, ok = u.EffectiveDependencies("C", 0)
	if !ok || len(deps) != 1 || deps[0].PackageID != "D" {
		t.Errorf("agnostic group not applied: %v, %v", deps, ok)
	}
}

func TestBuild_CandidatesStrictlyAscending(t *testing.T) {
	t.Parallel()

	u, err := NewBuilder(diamondProvider(), exactOracle{}, "net8.0").
		Build(context.Background(), BuildRequest{Roots: []string{"A"}})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	for _, pkg := range u.Packages() {
		for i := 1; i < len(pkg.Candidates); i++ {
			if !pkg.Candidates[i-1].Version.LessThan(pkg.Candidates[i].Version) {
				t.Errorf("%s candidates not ascending at %d", pkg.ID, i)
			}
		}
	}
}

func TestBuild_OrderIndependent(t *testing.T) {
	t.Parallel()

	build := func(delays map[string]time.Duration) string {
		prov := diamondProvider()
		for k, d := range delays {
			prov.delays[k] = d
		}
		u, err := NewBuilder(prov, exactOracle{}, "net8.0", WithConcurrency(8)).
			Build(context.Background(), BuildRequest{Roots: []string{"A", "C", "B"}})
		if err != nil {
			t.Fatalf("Build() unexpected error: %v", err)
		}
		return describe(u)
	}

	first := build(map[string]time.Duration{"a": 20 * time.Millisecond, "c": 1 * time.Millisecond})
	second := build(map[string]time.Duration{"b": 20 * time.Millisecond, "a": 1 * time.Millisecond})
	third := build(nil)

	if first != second || second != third {
		t.Errorf("universe depends on fetch order:\n%s\n---\n%s\n---\n%s", first, second, third)
	}
}

func TestBuild_ZeroCandidatePackageKept(t *testing.T) {
	t.Parallel()

	prov := newFakeProvider(
		node("App", "1.0.0", group("net8.0", dep("Ghost", "1.0"))),
	)
	u, err := NewBuilder(prov, exactOracle{}, "net8.0").
		Build(context.Background(), BuildRequest{Roots: []string{"App"}})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	cands, ok := u.Candidates("ghost")
	if !ok {
		t.Fatal("zero-candidate package should still have an entry")
	}
	if len(cands) != 0 {
		t.Errorf("Candidates(Ghost) = %d entries, want 0", len(cands))
	}
}

func TestBuild_FetchErrorPropagatedUnchanged(t *testing.T) {
	t.Parallel()

	prov := diamondProvider()
	want := &FetchError{PackageID: "C", Source: "nuget.org", Err: errors.New("boom")}
	prov.errs["c"] = want

	u, err := NewBuilder(prov, exactOracle{}, "net8.0").
		Build(context.Background(), BuildRequest{Roots: []string{"A"}})
	if u != nil {
		t.Error("no partial universe may be returned on error")
	}
	var got *FetchError
	if !errors.As(err, &got) || got != want {
		t.Fatalf("Build() error = %v, want the provider's FetchError", err)
	}
	if !errors.Is(err, ErrFetch) {
		t.Error("error should match ErrFetch")
	}
}

func TestBuild_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prov := diamondProvider()
	_, err := NewBuilder(prov, exactOracle{}, "net8.0").Build(ctx, BuildRequest{Roots: []string{"A"}})

	var cancelled *CancelledError
	if !errors.As(err, &cancelled) {
		t.Fatalf("Build() error = %v, want CancelledError", err)
	}
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrCancelled) {
		t.Errorf("error %v should match context.Canceled and ErrCancelled", err)
	}
	if prov.totalCalls() != 0 {
		t.Errorf("fetches = %d, want 0", prov.totalCalls())
	}
}

func TestBuild_CancelledMidTraversal(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prov := diamondProvider()
	prov.delays["b"] = time.Second
	prov.hook = func(id string) {
		if id == "b" {
			cancel()
		}
	}

	_, err := NewBuilder(prov, exactOracle{}, "net8.0").Build(ctx, BuildRequest{Roots: []string{"A"}})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Build() error = %v, want CancelledError", err)
	}
	if prov.callCount("D") != 0 {
		t.Error("packages of later waves must not be fetched after cancellation")
	}
}

func TestBuild_EffectiveDependenciesUseOracle(t *testing.T) {
	t.Parallel()

	prov := newFakeProvider(
		node("Lib", "1.0.0",
			group("netstandard2.0", dep("Polyfill", "1.0")),
			group("net6.0"),
		),
		node("Lib", "2.0.0",
			group("net472", dep("Legacy", "1.0")),
		),
		node("Polyfill", "1.0.0"),
		node("Legacy", "1.0.0"),
	)

	u, err := NewBuilder(prov, framework.NewOracle(), "net8.0").
		Build(context.Background(), BuildRequest{Roots: []string{"Lib"}})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	// Every referenced package is fetched even when no version uses it.
	if _, ok := u.Lookup("Polyfill"); !ok {
		t.Error("Polyfill should be part of the closure")
	}
	if _, ok := u.Lookup("Legacy"); !ok {
		t.Error("Legacy should be part of the closure")
	}

	deps, _ := u.EffectiveDependencies("Lib", 0)
	if len(deps) != 0 {
		t.Errorf("Lib 1.0.0 should use the empty net6.0 group, got %v", deps)
	}
	deps, _ = u.EffectiveDependencies("Lib", 1)
	if len(deps) != 0 {
		t.Errorf("Lib 2.0.0 has no compatible group and should have no dependencies, got %v", deps)
	}
}

func TestBuild_ExcludeFlaggedDependencies(t *testing.T) {
	t.Parallel()

	analyzer := dep("Analyzers", "1.0")
	analyzer.DevelopmentOnly = true
	implicit := dep("NETStandard.Library", "2.0")
	implicit.AutoReferenced = true

	newProv := func() *fakeProvider {
		return newFakeProvider(
			node("Lib", "1.0.0", group("net8.0", analyzer, implicit, dep("Core", "1.0"))),
			node("Analyzers", "1.0.0"),
			node("NETStandard.Library", "2.0.0"),
			node("Core", "1.0.0"),
		)
	}

	tests := []struct {
		name     string
		opts     []Option
		wantPkgs int
		wantDeps int
	}{
		{"keep all", nil, 4, 3},
		{"exclude development", []Option{WithExcludeDevelopmentOnly(true)}, 3, 2},
		{"exclude auto", []Option{WithExcludeAutoReferenced(true)}, 3, 2},
		{"exclude both", []Option{WithExcludeAutoReferenced(true), WithExcludeDevelopmentOnly(true)}, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u, err := NewBuilder(newProv(), exactOracle{}, "net8.0", tt.opts...).
				Build(context.Background(), BuildRequest{Roots: []string{"Lib"}})
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if u.Len() != tt.wantPkgs {
				t.Errorf("Len() = %d, want %d", u.Len(), tt.wantPkgs)
			}
			deps, _ := u.EffectiveDependencies("Lib", 0)
			if len(deps) != tt.wantDeps {
				t.Errorf("effective deps = %d, want %d", len(deps), tt.wantDeps)
			}
		})
	}
}

func TestBuild_NoRoots(t *testing.T) {
	t.Parallel()

	u, err := NewBuilder(newFakeProvider(), exactOracle{}, "net8.0").
		Build(context.Background(), BuildRequest{Roots: []string{" ", ""}})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if u.Len() != 0 || len(u.TopLevel()) != 0 {
		t.Errorf("empty request should yield an empty universe, got %d packages", u.Len())
	}
}
