// SPDX-License-Identifier: MPL-2.0

package universe

import (
	"strings"
	"time"

	"github.com/nugraph/nugraph/pkg/version"
)

type (
	// PackageVersionNode is one concrete version of one package as reported by
	// a metadata source. Nodes are treated as immutable once constructed.
	PackageVersionNode struct {
		// PackageID is the package identifier as the source spells it.
		PackageID string
		// Version is the parsed package version.
		Version version.Version
		// SourceName names the feed the node was read from.
		SourceName string
		// Published is the publish time, zero when the source does not report one.
		Published time.Time
		// DependencyGroups holds one entry per target framework the package
		// declares dependencies for. May be empty.
		DependencyGroups []DependencyGroupInfo
	}

	// DependencyGroupInfo is a dependency list scoped to one target framework.
	DependencyGroupInfo struct {
		// FrameworkMoniker is the group's target framework. Empty means the
		// group applies to any framework.
		FrameworkMoniker string
		Dependencies     []DependencyInfo
	}

	// DependencyInfo is one declared dependency edge.
	DependencyInfo struct {
		PackageID string
		Range     version.Range
		// AutoReferenced marks dependencies added implicitly by the SDK.
		AutoReferenced bool
		// DevelopmentOnly marks build-time dependencies that do not flow to consumers.
		DevelopmentOnly bool
	}
)

// Key returns the case-insensitive lookup key for a package identifier.
func Key(packageID string) string {
	return strings.ToLower(strings.TrimSpace(packageID))
}

// HasPublished reports whether the source reported a publish time.
func (n PackageVersionNode) HasPublished() bool { return !n.Published.IsZero() }

// Frameworks returns the framework monikers of n's dependency groups in declaration order.
func (n PackageVersionNode) Frameworks() []string {
	out := make([]string, len(n.DependencyGroups))
	for i, g := range n.DependencyGroups {
		out[i] = g.FrameworkMoniker
	}
	return out
}

// String renders the dependency as "Id Range".
func (d DependencyInfo) String() string {
	return d.PackageID + " " + d.Range.NormalizedString()
}
