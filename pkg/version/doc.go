// SPDX-License-Identifier: MPL-2.0

// Package version implements NuGet package versions and version ranges.
//
// Versions order by their numeric segments, then release above prerelease,
// then prerelease labels. Build metadata never affects ordering. Ranges use
// NuGet interval notation and exclude prerelease versions unless one of the
// bounds is itself a prerelease.
package version
