// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for thresh.
//
// Commands are thin: they load configuration, build an engine.Service and
// render what it returns. Errors are rendered here, once, with the matching
// issue catalog entry when one applies.
package cmd
