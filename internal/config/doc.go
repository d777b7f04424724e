// SPDX-License-Identifier: MPL-2.0

// Package config loads thresh configuration using Viper with CUE as the file format.
//
// The file is config.cue in the platform config directory (%APPDATA%\thresh on
// Windows, ~/Library/Application Support/thresh on macOS, $XDG_CONFIG_HOME/thresh
// elsewhere). Every key is optional and validated against the embedded #Config
// schema. THRESH_ prefixed environment variables override file values.
package config
