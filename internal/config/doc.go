// SPDX-License-Identifier: MPL-2.0

// Package config handles ucw configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/ucw/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/ucw/config.cue on macOS, %APPDATA%\ucw\config.cue
// on Windows), falling back to ./config.cue. Files are validated against an embedded
// CUE schema (config_schema.cue); UCW_* environment variables override file values.
//
// The configuration names the host catalog, the content sources to load rules from,
// the namespace for generated identifiers, and logging, watch and UI settings.
package config
