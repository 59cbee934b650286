// SPDX-License-Identifier: MPL-2.0

// Package framework parses .NET target framework monikers and decides which of
// a package version's dependency groups applies to a project framework.
//
// The rules cover .NET Framework, .NET Standard, .NET Core and .NET 5+ with
// OS platform suffixes. Portable profiles and other legacy families are
// reported as Unsupported and never selected.
package framework
