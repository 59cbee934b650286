// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Unsupported is a framework this package cannot reason about (portable
	// profiles, Xamarin, UWP and similar). It is never compatible.
	Unsupported Family = iota
	// Any is the framework-agnostic group ("any", or a group without a target framework).
	Any
	// NETFramework is the classic .NET Framework (net45, net472, net48).
	NETFramework
	// NETStandard is .NET Standard (netstandard1.0 to netstandard2.1).
	NETStandard
	// NETCoreApp is .NET Core and .NET 5+ (netcoreapp3.1, net8.0).
	NETCoreApp
)

var (
	// ErrInvalidFramework is the sentinel error wrapped by InvalidFrameworkError.
	ErrInvalidFramework = errors.New("invalid target framework")
)

type (
	// Family identifies a framework lineage.
	Family int

	// Framework is a parsed target framework moniker.
	Framework struct {
		Family Family
		// Version holds up to four numeric parts (4.7.2 -> [4 7 2 0]).
		Version [4]int
		// Platform is the lower-cased OS platform of a .NET 5+ moniker
		// ("windows" for net6.0-windows10.0), empty when platform-neutral.
		Platform string
		raw      string
	}

	// InvalidFrameworkError is returned when a moniker cannot be parsed.
	// It wraps ErrInvalidFramework for errors.Is() compatibility.
	InvalidFrameworkError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface for InvalidFrameworkError.
func (e *InvalidFrameworkError) Error() string {
	return fmt.Sprintf("invalid target framework %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidFramework for errors.Is() compatibility.
func (e *InvalidFrameworkError) Unwrap() error { return ErrInvalidFramework }

// String returns the display name of the family.
func (f Family) String() string {
	switch f {
	case Any:
		return "Any"
	case NETFramework:
		return ".NETFramework"
	case NETStandard:
		return ".NETStandard"
	case NETCoreApp:
		return ".NETCoreApp"
	default:
		return "Unsupported"
	}
}

// Parse parses a short folder name (net8.0, netstandard2.0, net472,
// net6.0-windows) or a full framework name as it appears in NuGet registration
// metadata (.NETStandard2.0, .NETFramework4.7.2, .NETCoreApp,Version=v3.1).
// Empty, "any" and "agnostic" denote the Any framework.
//
// Unknown families return an Unsupported framework together with an error.
func Parse(s string) (Framework, error) {
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(raw)

	switch lower {
	case "", "any", "agnostic":
		return Framework{Family: Any, raw: raw}, nil
	}

	unsupported := func(reason string) (Framework, error) {
		return Framework{Family: Unsupported, raw: raw}, &InvalidFrameworkError{Value: raw, Reason: reason}
	}

	if strings.HasPrefix(lower, ".") {
		return parseFullName(raw, lower, unsupported)
	}

	name, platform, _ := strings.Cut(lower, "-")
	switch {
	case strings.HasPrefix(name, "netstandard"):
		ver, ok := parseDotted(strings.TrimPrefix(name, "netstandard"))
		if !ok || platform != "" {
			return unsupported("malformed .NET Standard version")
		}
		return Framework{Family: NETStandard, Version: ver, raw: raw}, nil

	case strings.HasPrefix(name, "netcoreapp"):
		ver, ok := parseDotted(strings.TrimPrefix(name, "netcoreapp"))
		if !ok || platform != "" {
			return unsupported("malformed .NET Core version")
		}
		return Framework{Family: NETCoreApp, Version: ver, raw: raw}, nil

	case strings.HasPrefix(name, "net"):
		digits := strings.TrimPrefix(name, "net")
		if strings.Contains(digits, ".") {
			ver, ok := parseDotted(digits)
			if !ok {
				return unsupported("malformed .NET version")
			}
			if ver[0] >= 5 {
				return Framework{Family: NETCoreApp, Version: ver, Platform: platformName(platform), raw: raw}, nil
			}
			if platform != "" {
				return unsupported("platform suffix requires .NET 5 or later")
			}
			return Framework{Family: NETFramework, Version: ver, raw: raw}, nil
		}
		ver, ok := parseCompact(digits)
		if !ok || platform != "" {
			return unsupported("malformed .NET Framework version")
		}
		return Framework{Family: NETFramework, Version: ver, raw: raw}, nil
	}

	return unsupported("unknown framework family")
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Framework {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

func parseFullName(raw, lower string, unsupported func(string) (Framework, error)) (Framework, error) {
	name, ver := lower, ""
	if before, after, ok := strings.Cut(lower, ",version=v"); ok {
		name, ver = before, after
	} else {
		i := strings.IndexFunc(lower, func(r rune) bool { return r >= '0' && r <= '9' })
		if i < 0 {
			return unsupported("missing version")
		}
		name, ver = lower[:i], lower[i:]
	}

	parsed, ok := parseDotted(ver)
	if !ok {
		return unsupported("malformed version")
	}

	switch name {
	case ".netstandard":
		return Framework{Family: NETStandard, Version: parsed, raw: raw}, nil
	case ".netcoreapp":
		return Framework{Family: NETCoreApp, Version: parsed, raw: raw}, nil
	case ".netframework":
		return Framework{Family: NETFramework, Version: parsed, raw: raw}, nil
	}
	return unsupported("unknown framework family")
}

// parseDotted parses "2.0" or "4.7.2".
func parseDotted(s string) ([4]int, bool) {
	var out [4]int
	if s == "" {
		return out, false
	}
	parts := strings.Split(s, ".")
	if len(parts) > len(out) {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return out, false
		}
		out[i] = n
	}
	return out, true
}

// parseCompact parses the digit-per-part form of .NET Framework monikers
// ("472" -> 4.7.2, "48" -> 4.8).
func parseCompact(s string) ([4]int, bool) {
	var out [4]int
	if s == "" || len(s) > len(out) {
		return out, false
	}
	for i, r := range s {
		if r < '0' || r > '9' {
			return out, false
		}
		out[i] = int(r - '0')
	}
	return out, true
}

// platformName strips the platform version ("windows10.0" -> "windows").
func platformName(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool { return (r >= '0' && r <= '9') || r == '.' })
}

// IsAny reports whether f is the framework-agnostic Any framework.
func (f Framework) IsAny() bool { return f.Family == Any }

// IsSupported reports whether f belongs to a known family.
func (f Framework) IsSupported() bool { return f.Family != Unsupported }

// Original returns the moniker as it was parsed.
func (f Framework) Original() string { return f.raw }

// ShortFolderName renders the canonical short moniker (net8.0, netstandard2.0, net472).
func (f Framework) ShortFolderName() string {
	switch f.Family {
	case Any:
		return "any"
	case NETStandard:
		return fmt.Sprintf("netstandard%d.%d", f.Version[0], f.Version[1])
	case NETCoreApp:
		if f.Version[0] >= 5 {
			name := fmt.Sprintf("net%d.%d", f.Version[0], f.Version[1])
			if f.Platform != "" {
				name += "-" + f.Platform
			}
			return name
		}
		return fmt.Sprintf("netcoreapp%d.%d", f.Version[0], f.Version[1])
	case NETFramework:
		var sb strings.Builder
		sb.WriteString("net")
		last := 1
		for i := len(f.Version) - 1; i >= 2; i-- {
			if f.Version[i] != 0 {
				last = i
				break
			}
		}
		for i := 0; i <= last; i++ {
			sb.WriteString(strconv.Itoa(f.Version[i]))
		}
		return sb.String()
	default:
		return f.raw
	}
}

// String implements fmt.Stringer.
func (f Framework) String() string { return f.ShortFolderName() }

func compareVersion(a, b [4]int) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
