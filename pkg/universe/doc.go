// SPDX-License-Identifier: MPL-2.0

// Package universe holds the closed resolution problem: every package reachable
// from a set of requested roots, its candidate versions in ascending order, and
// the single dependency list that applies to each version under one target
// framework.
//
// A Universe is built once by a Builder and is immutable afterwards. Packages
// and versions are addressed by small integer indices so a solver can use them
// directly as decision variables.
package universe
