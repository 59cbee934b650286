// SPDX-License-Identifier: MPL-2.0

package universe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nugraph/nugraph/pkg/version"
)

type (
	// fakeProvider serves canned versions and counts fetches per package.
	fakeProvider struct {
		mu       sync.Mutex
		packages map[string][]PackageVersionNode
		calls    map[string]int
		delays   map[string]time.Duration
		errs     map[string]error
		hook     func(id string)
	}

	// exactOracle picks the group matching the target verbatim, then the
	// framework-agnostic group.
	exactOracle struct{}
)

func newFakeProvider(nodes ...PackageVersionNode) *fakeProvider {
	p := &fakeProvider{
		packages: make(map[string][]PackageVersionNode),
		calls:    make(map[string]int),
		delays:   make(map[string]time.Duration),
		errs:     make(map[string]error),
	}
	for _, n := range nodes {
		k := Key(n.PackageID)
		p.packages[k] = append(p.packages[k], n)
	}
	for k := range p.packages {
		sort.Slice(p.packages[k], func(i, j int) bool {
			return p.packages[k][i].Version.LessThan(p.packages[k][j].Version)
		})
	}
	return p
}

func (p *fakeProvider) GetVersions(ctx context.Context, id string, _ bool, _ int) ([]PackageVersionNode, error) {
	k := Key(id)
	p.mu.Lock()
	p.calls[k]++
	delay, err, hook := p.delays[k], p.errs[k], p.hook
	p.mu.Unlock()

	if hook != nil {
		hook(k)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	src := p.packages[k]
	out := make([]PackageVersionNode, len(src))
	copy(out, src)
	return out, nil
}

func (p *fakeProvider) callCount(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[Key(id)]
}

func (p *fakeProvider) totalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

func (exactOracle) SelectNearest(candidates []string, target string) (string, bool) {
	for _, c := range candidates {
		if c == target {
			return c, true
		}
	}
	for _, c := range candidates {
		if c == "" {
			return c, true
		}
	}
	return "", false
}

func node(id, ver string, groups ...DependencyGroupInfo) PackageVersionNode {
	return PackageVersionNode{
		PackageID:        id,
		Version:          version.MustParse(ver),
		SourceName:       "test",
		DependencyGroups: groups,
	}
}

func group(tfm string, deps ...DependencyInfo) DependencyGroupInfo {
	return DependencyGroupInfo{FrameworkMoniker: tfm, Dependencies: deps}
}

func dep(id, rng string) DependencyInfo {
	return DependencyInfo{PackageID: id, Range: version.MustParseRange(rng)}
}

// describe renders a universe in a stable textual form for comparisons.
func describe(u *Universe) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "framework=%s\n", u.Framework())
	for _, p := range u.TopLevel() {
		fmt.Fprintf(&sb, "top %s\n", u.Package(p).ID)
	}
	for _, pkg := range u.Packages() {
		fmt.Fprintf(&sb, "%s\n", pkg.ID)
		for i, n := range pkg.Candidates {
			fmt.Fprintf(&sb, "  [%d] %s", i, n.Version.NormalizedString())
			for _, e := range pkg.Dependencies[i] {
				fmt.Fprintf(&sb, " -> %s#%d %s", e.Dependency.PackageID, e.Target, e.Dependency.Range)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
