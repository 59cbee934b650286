// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nugraph/nugraph/pkg/universe"
)

// maxPackageIDLength mirrors the gallery limit on package identifiers.
const maxPackageIDLength = 100

var (
	errNoPackages       = errors.New("no packages to resolve")
	errInvalidPackageID = errors.New("invalid package id")

	packageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+([.-][A-Za-z0-9_]+)*$`)
)

// InvalidPackageIDError is returned for a package argument that is not a
// NuGet package identifier.
type InvalidPackageIDError struct {
	Value string
}

// Error implements the error interface.
func (e *InvalidPackageIDError) Error() string {
	return fmt.Sprintf("invalid package id %q", e.Value)
}

// Unwrap returns errInvalidPackageID for errors.Is() compatibility.
func (e *InvalidPackageIDError) Unwrap() error { return errInvalidPackageID }

// parsePackageIDs collects package IDs from positional arguments and
// --package values. Each value may hold a comma-separated list. IDs are
// trimmed, empty entries dropped and duplicates removed case-insensitively,
// keeping the first spelling.
func parsePackageIDs(values ...[]string) ([]string, error) {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	for _, list := range values {
		for _, value := range list {
			for id := range strings.SplitSeq(value, ",") {
				id = strings.TrimSpace(id)
				if id == "" {
					continue
				}
				if len(id) > maxPackageIDLength || !packageIDPattern.MatchString(id) {
					return nil, &InvalidPackageIDError{Value: id}
				}
				key := universe.Key(id)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, id)
			}
		}
	}
	if len(out) == 0 {
		return nil, errNoPackages
	}
	return out, nil
}
