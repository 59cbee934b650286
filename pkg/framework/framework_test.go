// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		family   Family
		short    string
		platform string
	}{
		{"net8.0", NETCoreApp, "net8.0", ""},
		{"NET6.0", NETCoreApp, "net6.0", ""},
		{"net6.0-windows", NETCoreApp, "net6.0-windows", "windows"},
		{"net7.0-android33.0", NETCoreApp, "net7.0-android", "android"},
		{"netcoreapp3.1", NETCoreApp, "netcoreapp3.1", ""},
		{"netstandard2.0", NETStandard, "netstandard2.0", ""},
		{"netstandard1.3", NETStandard, "netstandard1.3", ""},
		{"net472", NETFramework, "net472", ""},
		{"net48", NETFramework, "net48", ""},
		{"net45", NETFramework, "net45", ""},
		{"net40", NETFramework, "net40", ""},
		{".NETStandard2.0", NETStandard, "netstandard2.0", ""},
		{".NETFramework4.6.1", NETFramework, "net461", ""},
		{".NETCoreApp3.1", NETCoreApp, "netcoreapp3.1", ""},
		{".NETCoreApp,Version=v5.0", NETCoreApp, "net5.0", ""},
		{"", Any, "any", ""},
		{"any", Any, "any", ""},
		{"Agnostic", Any, "any", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			f, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
			}
			if f.Family != tt.family {
				t.Errorf("Family = %v, want %v", f.Family, tt.family)
			}
			if got := f.ShortFolderName(); got != tt.short {
				t.Errorf("ShortFolderName() = %q, want %q", got, tt.short)
			}
			if f.Platform != tt.platform {
				t.Errorf("Platform = %q, want %q", f.Platform, tt.platform)
			}
		})
	}
}

func TestParse_Unsupported(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"portable-net45+win8",
		"xamarinios10",
		"netstandard",
		"net4x",
		".NETPortable0.0-Profile259",
		"net45-windows",
	} {
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			f, err := Parse(in)
			if !errors.Is(err, ErrInvalidFramework) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidFramework", in, err)
			}
			if f.IsSupported() {
				t.Errorf("Parse(%q) should yield an unsupported framework", in)
			}
		})
	}
}

func TestIsCompatible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target, candidate string
		want              bool
	}{
		{"net8.0", "netstandard2.0", true},
		{"net8.0", "netstandard2.1", true},
		{"net8.0", "net6.0", true},
		{"net6.0", "net8.0", false},
		{"net8.0", "net472", false},
		{"net8.0", "any", true},
		{"netcoreapp2.1", "netstandard2.1", false},
		{"netcoreapp2.1", "netstandard2.0", true},
		{"net472", "netstandard2.0", true},
		{"net461", "netstandard2.0", true},
		{"net46", "netstandard2.0", false},
		{"net46", "netstandard1.3", true},
		{"net45", "netstandard1.1", true},
		{"net40", "netstandard1.0", false},
		{"net48", "net45", true},
		{"netstandard2.0", "netstandard1.6", true},
		{"netstandard2.0", "net461", false},
		{"net6.0-windows", "net6.0", true},
		{"net6.0", "net6.0-windows", false},
		{"net8.0-windows", "net6.0-windows", true},
		{"net8.0-android", "net6.0-windows", false},
		{"net8.0", "portable-net45+win8", false},
	}

	for _, tt := range tests {
		t.Run(tt.target+"<-"+tt.candidate, func(t *testing.T) {
			t.Parallel()

			target := MustParse(tt.target)
			candidate, _ := Parse(tt.candidate)
			if got := IsCompatible(target, candidate); got != tt.want {
				t.Errorf("IsCompatible(%s, %s) = %v, want %v", tt.target, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestOracle_SelectNearest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		candidates []string
		want       string
		wantOK     bool
	}{
		{"same family beats standard", "net8.0", []string{"netstandard2.0", "net6.0"}, "net6.0", true},
		{"highest compatible version", "net8.0", []string{"net5.0", "net7.0", "net9.0"}, "net7.0", true},
		{"standard beats any", "net8.0", []string{"any", "netstandard1.3"}, "netstandard1.3", true},
		{"any fallback", "net8.0", []string{"net472", "any"}, "any", true},
		{"empty moniker is any", "net8.0", []string{"net472", ""}, "", true},
		{"nothing compatible", "net8.0", []string{"net472", "net48"}, "", false},
		{"no groups", "net8.0", nil, "", false},
		{"platform specific preferred", "net8.0-windows", []string{"net8.0", "net8.0-windows"}, "net8.0-windows", true},
		{"full names", "net472", []string{".NETStandard2.0", ".NETFramework4.5"}, ".NETFramework4.5", true},
		{"highest standard", "net8.0", []string{"netstandard1.0", "netstandard2.0", "netstandard1.6"}, "netstandard2.0", true},
		{"unparseable target", "bogus", []string{"any"}, "", false},
		{"unparseable candidates skipped", "net8.0", []string{"portable-net45+win8", "netstandard2.0"}, "netstandard2.0", true},
	}

	oracle := NewOracle()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := oracle.SelectNearest(tt.candidates, tt.target)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("SelectNearest(%v, %s) = (%q, %v), want (%q, %v)", tt.candidates, tt.target, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
