// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// maxSegments is the number of numeric parts a NuGet version may carry
// (Major.Minor.Patch.Revision).
const maxSegments = 4

var (
	// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
	ErrInvalidVersion = errors.New("invalid version")
)

type (
	// Version is a NuGet package version: one to four numeric segments, an
	// optional dot-separated prerelease label and optional build metadata.
	//
	// Versions are immutable. The zero value is not a valid version; use Parse.
	Version struct {
		original string
		segments [maxSegments]int64
		pre      string
		meta     string
		// cmp is a canonical four-segment, lower-cased form used for ordering.
		// Prerelease labels compare case-insensitively and metadata is ignored.
		cmp *goversion.Version
	}

	// InvalidVersionError is returned when a string is not a NuGet version.
	// It wraps ErrInvalidVersion for errors.Is() compatibility.
	InvalidVersionError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface for InvalidVersionError.
func (e *InvalidVersionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid version %q", e.Value)
	}
	return fmt.Sprintf("invalid version %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidVersion for errors.Is() compatibility.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Parse parses a NuGet version string such as "1.2", "1.2.3.4",
// "2.0.0-beta.1" or "1.0.0+sha.5114f85".
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, &InvalidVersionError{Value: s, Reason: "empty"}
	}
	if s[0] < '0' || s[0] > '9' {
		return Version{}, &InvalidVersionError{Value: s, Reason: "must start with a digit"}
	}

	core, meta, _ := strings.Cut(s, "+")
	core, pre, hasPre := strings.Cut(core, "-")
	if hasPre && pre == "" {
		return Version{}, &InvalidVersionError{Value: s, Reason: "empty prerelease label"}
	}

	parts := strings.Split(core, ".")
	if len(parts) > maxSegments {
		return Version{}, &InvalidVersionError{Value: s, Reason: "more than four numeric segments"}
	}

	v := Version{original: s, pre: pre, meta: meta}
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return Version{}, &InvalidVersionError{Value: s, Reason: fmt.Sprintf("segment %q is not a number", part)}
		}
		v.segments[i] = n
	}

	// Validate label and metadata syntax through go-version's semver grammar.
	if _, err := goversion.NewSemver("0.0.0" + suffix(pre, meta)); err != nil {
		return Version{}, &InvalidVersionError{Value: s, Reason: "malformed prerelease or metadata"}
	}

	canonical := fmt.Sprintf("%d.%d.%d.%d", v.segments[0], v.segments[1], v.segments[2], v.segments[3])
	if pre != "" {
		canonical += "-" + strings.ToLower(pre)
	}
	cmp, err := goversion.NewSemver(canonical)
	if err != nil {
		return Version{}, &InvalidVersionError{Value: s, Reason: err.Error()}
	}
	v.cmp = cmp

	return v, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func suffix(pre, meta string) string {
	var sb strings.Builder
	if pre != "" {
		sb.WriteString("-")
		sb.WriteString(pre)
	}
	if meta != "" {
		sb.WriteString("+")
		sb.WriteString(meta)
	}
	return sb.String()
}

// Compare returns -1, 0 or 1 when a is lower than, equal to or greater than b.
// Build metadata is ignored and prerelease labels compare case-insensitively.
func Compare(a, b Version) int {
	switch {
	case a.cmp == nil && b.cmp == nil:
		return 0
	case a.cmp == nil:
		return -1
	case b.cmp == nil:
		return 1
	}
	if a.segments == b.segments && a.pre != "" && b.pre != "" {
		// go-version orders "alpha" above "alpha.beta"; NuGet and SemVer put
		// the shorter label list first when one is a prefix of the other.
		if c, ok := comparePrefixLabels(strings.ToLower(a.pre), strings.ToLower(b.pre)); ok {
			return c
		}
	}
	return a.cmp.Compare(b.cmp)
}

func comparePrefixLabels(a, b string) (int, bool) {
	al, bl := strings.Split(a, "."), strings.Split(b, ".")
	if len(al) == len(bl) {
		return 0, false
	}
	n := min(len(al), len(bl))
	for i := range n {
		if al[i] != bl[i] {
			return 0, false
		}
	}
	if len(al) < len(bl) {
		return -1, true
	}
	return 1, true
}

// IsValid reports whether v was produced by Parse.
func (v Version) IsValid() bool { return v.cmp != nil }

// Equal reports whether v and o denote the same release.
func (v Version) Equal(o Version) bool { return Compare(v, o) == 0 }

// LessThan reports whether v orders before o.
func (v Version) LessThan(o Version) bool { return Compare(v, o) < 0 }

// IsPrerelease reports whether v carries a prerelease label.
func (v Version) IsPrerelease() bool { return v.pre != "" }

// Prerelease returns the prerelease label without the leading dash.
func (v Version) Prerelease() string { return v.pre }

// Metadata returns the build metadata without the leading plus sign.
func (v Version) Metadata() string { return v.meta }

// Major returns the first numeric segment.
func (v Version) Major() int64 { return v.segments[0] }

// Minor returns the second numeric segment.
func (v Version) Minor() int64 { return v.segments[1] }

// Patch returns the third numeric segment.
func (v Version) Patch() int64 { return v.segments[2] }

// Revision returns the fourth numeric segment.
func (v Version) Revision() int64 { return v.segments[3] }

// String returns the version as it was parsed.
func (v Version) String() string { return v.original }

// NormalizedString returns Major.Minor.Patch, the revision only when it is not
// zero, and the prerelease label. Metadata is omitted.
func (v Version) NormalizedString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.segments[0], v.segments[1], v.segments[2])
	if v.segments[3] != 0 {
		fmt.Fprintf(&sb, ".%d", v.segments[3])
	}
	if v.pre != "" {
		sb.WriteString("-")
		sb.WriteString(v.pre)
	}
	return sb.String()
}

// FullString returns the normalized form followed by build metadata, if any.
func (v Version) FullString() string {
	if v.meta == "" {
		return v.NormalizedString()
	}
	return v.NormalizedString() + "+" + v.meta
}
