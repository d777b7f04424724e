// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the compile, unify, validate and decode flow shared
// by blueprint parsing and configuration loading.
//
// JSON is a subset of CUE, so callers holding YAML or TOML documents convert
// them to JSON first and validate them against the same schema.
package cueutil
