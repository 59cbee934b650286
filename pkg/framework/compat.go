// SPDX-License-Identifier: MPL-2.0

package framework

import "sync"

// Oracle answers framework compatibility questions for the universe builder.
// It memoizes parsed monikers and is safe for concurrent use.
type Oracle struct {
	parsed sync.Map // string -> parsedMoniker
}

type parsedMoniker struct {
	fw  Framework
	err error
}

// NewOracle creates an Oracle.
func NewOracle() *Oracle {
	return &Oracle{}
}

func (o *Oracle) parse(s string) (Framework, error) {
	if v, ok := o.parsed.Load(s); ok {
		pm := v.(parsedMoniker)
		return pm.fw, pm.err
	}
	fw, err := Parse(s)
	o.parsed.Store(s, parsedMoniker{fw: fw, err: err})
	return fw, err
}

// SelectNearest returns the candidate moniker whose dependency group applies
// to target, or false when none is compatible. Unparseable candidates are skipped.
func (o *Oracle) SelectNearest(candidates []string, target string) (string, bool) {
	tfm, err := o.parse(target)
	if err != nil {
		return "", false
	}

	best := -1
	var bestFW Framework
	for i, c := range candidates {
		fw, err := o.parse(c)
		if err != nil || !IsCompatible(tfm, fw) {
			continue
		}
		if best < 0 || nearer(tfm, fw, bestFW) {
			best, bestFW = i, fw
		}
	}
	if best < 0 {
		return "", false
	}
	return candidates[best], true
}

// IsCompatible reports whether a package built for candidate can be consumed
// by a project targeting target.
func IsCompatible(target, candidate Framework) bool {
	if candidate.Family == Any {
		return true
	}
	if !target.IsSupported() || !candidate.IsSupported() || target.Family == Any {
		return false
	}
	if candidate.Platform != "" && candidate.Platform != target.Platform {
		return false
	}

	if target.Family == candidate.Family {
		return compareVersion(candidate.Version, target.Version) <= 0
	}
	if candidate.Family != NETStandard {
		return false
	}

	maxStandard, ok := standardSupport(target)
	return ok && compareVersion(candidate.Version, maxStandard) <= 0
}

// standardSupport returns the highest .NET Standard version a framework implements.
func standardSupport(f Framework) ([4]int, bool) {
	v := f.Version
	switch f.Family {
	case NETCoreApp:
		switch {
		case v[0] >= 3:
			return [4]int{2, 1}, true
		case v[0] == 2:
			return [4]int{2, 0}, true
		default:
			return [4]int{1, 6}, true
		}
	case NETFramework:
		switch {
		case compareVersion(v, [4]int{4, 6, 1}) >= 0:
			return [4]int{2, 0}, true
		case compareVersion(v, [4]int{4, 6}) >= 0:
			return [4]int{1, 3}, true
		case compareVersion(v, [4]int{4, 5, 1}) >= 0:
			return [4]int{1, 2}, true
		case compareVersion(v, [4]int{4, 5}) >= 0:
			return [4]int{1, 1}, true
		}
	}
	return [4]int{}, false
}

// nearer reports whether a is a better match for target than b. Both are
// assumed compatible with target.
func nearer(target, a, b Framework) bool {
	if pa, pb := precedence(target, a), precedence(target, b); pa != pb {
		return pa > pb
	}
	if c := compareVersion(a.Version, b.Version); c != 0 {
		return c > 0
	}
	return a.Platform != "" && b.Platform == ""
}

func precedence(target, f Framework) int {
	switch {
	case f.Family == Any:
		return 0
	case f.Family == target.Family:
		return 3
	case f.Family == NETStandard:
		return 2
	default:
		return 1
	}
}
