// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for nugraph.
//
// The App type is the composition root: it owns the configuration provider,
// the graph store opener and the output streams, and every command handler
// receives it. Commands translate domain failures into ServiceError values
// (rendered with the issue catalog) wrapped in an ExitError carrying the
// process exit code.
package cmd
