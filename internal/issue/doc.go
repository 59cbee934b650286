// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. The Issue catalog holds Markdown guidance for each class
// of failure the CLI reports (unsatisfiable constraints, feed errors, solver
// timeouts), rendered with glamour.
package issue
