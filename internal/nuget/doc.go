// SPDX-License-Identifier: MPL-2.0

// Package nuget reads package metadata from NuGet v3 feeds and from local
// directories laid out like a registration endpoint, and merges several
// sources into the candidate version lists the universe builder consumes.
package nuget
