// SPDX-License-Identifier: MPL-2.0

// Package solver selects one candidate version per package of a universe so
// that every effective dependency range is satisfied and the sum of the
// selected version indices over the optimized packages is maximal.
//
// The search is an exact branch-and-bound over per-package index domains with
// arc-consistent propagation of the dependency implications. A result is
// either a proven optimum, an InfeasibleError or a TimeoutError; a partially
// optimized assignment is never returned.
package solver
