// SPDX-License-Identifier: MPL-2.0

// Package graphstore persists dependency universes and resolutions into a
// property graph. Neo4j is the only backend; Null is used when no database
// is configured.
package graphstore
