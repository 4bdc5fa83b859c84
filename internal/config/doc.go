// SPDX-License-Identifier: MPL-2.0

// Package config handles user configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/carsier/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/carsier/config.cue on macOS, %APPDATA%\carsier\config.cue
// on Windows), then overridden by CARSIER_* environment variables. It names the external
// tools, extra compiler arguments and environment, build defaults, watch behavior and UI
// settings. Project settings live in Carsier.toml instead (see pkg/carsierfile).
//
// Files are validated against an embedded CUE schema (config_schema.cue).
package config
