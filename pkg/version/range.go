// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRange is the sentinel error wrapped by InvalidRangeError.
	ErrInvalidRange = errors.New("invalid version range")
)

type (
	// Range is an interval over versions in NuGet notation. Either side may be
	// unbounded and each bound is independently inclusive or exclusive.
	//
	//	1.0         1.0 <= x
	//	[1.0]       x == 1.0
	//	(1.0,)      1.0 < x
	//	[1.0,2.0)   1.0 <= x < 2.0
	//	(,2.0]      x <= 2.0
	Range struct {
		min, max                   Version
		hasMin, hasMax             bool
		minInclusive, maxInclusive bool
	}

	// InvalidRangeError is returned when a string is not a NuGet version range.
	// It wraps ErrInvalidRange for errors.Is() compatibility.
	InvalidRangeError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface for InvalidRangeError.
func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid version range %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidRange for errors.Is() compatibility.
func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// All returns the range that every release version satisfies.
func All() Range { return Range{} }

// AtLeast returns the range [v, ).
func AtLeast(v Version) Range {
	return Range{min: v, hasMin: true, minInclusive: true}
}

// Exact returns the range [v].
func Exact(v Version) Range {
	return Range{min: v, max: v, hasMin: true, hasMax: true, minInclusive: true, maxInclusive: true}
}

// NewRange builds a range from explicit bounds. A nil bound is unbounded.
func NewRange(minV *Version, minInclusive bool, maxV *Version, maxInclusive bool) (Range, error) {
	r := Range{}
	if minV != nil {
		r.min, r.hasMin, r.minInclusive = *minV, true, minInclusive
	}
	if maxV != nil {
		r.max, r.hasMax, r.maxInclusive = *maxV, true, maxInclusive
	}
	if reason := r.check(); reason != "" {
		return Range{}, &InvalidRangeError{Value: r.NormalizedString(), Reason: reason}
	}
	return r, nil
}

// ParseRange parses a NuGet version range. An empty string is the unbounded range.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return All(), nil
	}

	first, last := s[0], s[len(s)-1]
	if first != '[' && first != '(' {
		v, err := Parse(s)
		if err != nil {
			return Range{}, &InvalidRangeError{Value: s, Reason: err.Error()}
		}
		return AtLeast(v), nil
	}
	if last != ']' && last != ')' {
		return Range{}, &InvalidRangeError{Value: s, Reason: "missing closing bracket"}
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	lower, upper, hasComma := strings.Cut(inner, ",")
	if !hasComma {
		if first != '[' || last != ']' {
			return Range{}, &InvalidRangeError{Value: s, Reason: "a single version must use [x]"}
		}
		v, err := Parse(inner)
		if err != nil {
			return Range{}, &InvalidRangeError{Value: s, Reason: err.Error()}
		}
		return Exact(v), nil
	}
	if strings.Contains(upper, ",") {
		return Range{}, &InvalidRangeError{Value: s, Reason: "too many commas"}
	}

	r := Range{minInclusive: first == '[', maxInclusive: last == ']'}
	if lower = strings.TrimSpace(lower); lower != "" {
		v, err := Parse(lower)
		if err != nil {
			return Range{}, &InvalidRangeError{Value: s, Reason: err.Error()}
		}
		r.min, r.hasMin = v, true
	}
	if upper = strings.TrimSpace(upper); upper != "" {
		v, err := Parse(upper)
		if err != nil {
			return Range{}, &InvalidRangeError{Value: s, Reason: err.Error()}
		}
		r.max, r.hasMax = v, true
	}
	if !r.hasMin {
		r.minInclusive = false
	}
	if !r.hasMax {
		r.maxInclusive = false
	}
	if reason := r.check(); reason != "" {
		return Range{}, &InvalidRangeError{Value: s, Reason: reason}
	}
	return r, nil
}

// MustParseRange is like ParseRange but panics on error.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Range) check() string {
	if !r.hasMin || !r.hasMax {
		return ""
	}
	switch c := Compare(r.min, r.max); {
	case c > 0:
		return "minimum is greater than maximum"
	case c == 0 && !(r.minInclusive && r.maxInclusive):
		return "range is empty"
	}
	return ""
}

// Min returns the lower bound, if any.
func (r Range) Min() (Version, bool) { return r.min, r.hasMin }

// Max returns the upper bound, if any.
func (r Range) Max() (Version, bool) { return r.max, r.hasMax }

// MinInclusive reports whether the lower bound is part of the range.
func (r Range) MinInclusive() bool { return r.minInclusive }

// MaxInclusive reports whether the upper bound is part of the range.
func (r Range) MaxInclusive() bool { return r.maxInclusive }

// IsAll reports whether the range has no bounds.
func (r Range) IsAll() bool { return !r.hasMin && !r.hasMax }

// allowsPrerelease reports whether a bound is itself a prerelease, which is
// what opts a range into prerelease candidates.
func (r Range) allowsPrerelease() bool {
	return (r.hasMin && r.min.IsPrerelease()) || (r.hasMax && r.max.IsPrerelease())
}

// Satisfies reports whether v lies within the range. Prerelease versions only
// satisfy ranges whose minimum or maximum is a prerelease.
func (r Range) Satisfies(v Version) bool {
	if !v.IsValid() {
		return false
	}
	if v.IsPrerelease() && !r.allowsPrerelease() {
		return false
	}
	if r.hasMin {
		c := Compare(v, r.min)
		if c < 0 || (c == 0 && !r.minInclusive) {
			return false
		}
	}
	if r.hasMax {
		c := Compare(v, r.max)
		if c > 0 || (c == 0 && !r.maxInclusive) {
			return false
		}
	}
	return true
}

// FindBest returns the lowest version in versions that satisfies the range,
// which is how NuGet picks a dependency version without a solver.
func (r Range) FindBest(versions []Version) (Version, bool) {
	var best Version
	found := false
	for _, v := range versions {
		if !r.Satisfies(v) {
			continue
		}
		if !found || v.LessThan(best) {
			best, found = v, true
		}
	}
	return best, found
}

// NormalizedString renders the range in canonical interval notation.
func (r Range) NormalizedString() string {
	if r.hasMin && r.hasMax && r.minInclusive && r.maxInclusive && r.min.Equal(r.max) {
		return "[" + r.min.NormalizedString() + "]"
	}

	var sb strings.Builder
	if r.minInclusive {
		sb.WriteString("[")
	} else {
		sb.WriteString("(")
	}
	if r.hasMin {
		sb.WriteString(r.min.NormalizedString())
	}
	sb.WriteString(", ")
	if r.hasMax {
		sb.WriteString(r.max.NormalizedString())
	}
	if r.maxInclusive {
		sb.WriteString("]")
	} else {
		sb.WriteString(")")
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (r Range) String() string { return r.NormalizedString() }
