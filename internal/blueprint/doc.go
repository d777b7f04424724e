// SPDX-License-Identifier: MPL-2.0

// Package blueprint loads, validates and catalogs environment blueprints.
//
// A blueprint names a base distribution and lists packages, scripts and
// environment variables to apply on top of it. Blueprint files can be JSON,
// CUE, YAML or TOML; all of them are checked against the embedded
// #Blueprint CUE schema before decoding.
package blueprint
