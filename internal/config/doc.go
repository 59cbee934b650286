// SPDX-License-Identifier: MPL-2.0

// Package config handles nugraph configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/nugraph/config.cue (~/.config on Linux),
// ~/Library/Application Support/nugraph/config.cue on macOS or %APPDATA%\nugraph\config.cue
// on Windows, falling back to ./config.cue. The file is validated against the embedded
// schema (config_schema.cue) before it is merged over the defaults, and every key can be
// overridden with a NUGRAPH_ environment variable (NUGRAPH_RESOLVE_FRAMEWORK=net6.0).
package config
