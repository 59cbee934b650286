// SPDX-License-Identifier: MPL-2.0

// nugraph finds the newest mutually compatible versions of a set of NuGet
// packages and their transitive dependencies.
package main

import "github.com/nugraph/nugraph/cmd/nugraph"

func main() {
	cmd.Execute()
}
