// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestParsePackageIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		values  [][]string
		want    []string
		wantErr error
	}{
		{"positional", [][]string{{"Serilog", "Polly"}}, []string{"Serilog", "Polly"}, nil},
		{"comma list trimmed", [][]string{{" Serilog , Polly,"}}, []string{"Serilog", "Polly"}, nil},
		{"duplicates keep first spelling", [][]string{{"Serilog"}, {"serilog", "SERILOG", "Polly"}}, []string{"Serilog", "Polly"}, nil},
		{"dotted and dashed ids", [][]string{{"Microsoft.Extensions.Logging", "xunit.runner.visualstudio", "Foo-Bar_2"}}, []string{"Microsoft.Extensions.Logging", "xunit.runner.visualstudio", "Foo-Bar_2"}, nil},
		{"empty", [][]string{nil, {}}, nil, errNoPackages},
		{"only separators", [][]string{{",", " , "}}, nil, errNoPackages},
		{"space inside id", [][]string{{"Not Valid"}}, nil, errInvalidPackageID},
		{"leading dot", [][]string{{".Hidden"}}, nil, errInvalidPackageID},
		{"double dot", [][]string{{"A..B"}}, nil, errInvalidPackageID},
		{"version suffix", [][]string{{"Serilog@3.1.1"}}, nil, errInvalidPackageID},
		{"too long", [][]string{{strings.Repeat("a", maxPackageIDLength+1)}}, nil, errInvalidPackageID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parsePackageIDs(tt.values...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parsePackageIDs() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePackageIDs() unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("parsePackageIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvalidPackageIDError(t *testing.T) {
	t.Parallel()

	err := &InvalidPackageIDError{Value: "a b"}
	if err.Error() != `invalid package id "a b"` {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, errInvalidPackageID) {
		t.Error("InvalidPackageIDError should wrap errInvalidPackageID")
	}
}
