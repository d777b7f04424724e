// SPDX-License-Identifier: MPL-2.0

// Package tui provides the interactive prompts used by the thresh CLI.
//
// Components are Bubble Tea models. When the input is not a terminal, or
// the ACCESSIBLE environment variable is set, they fall back to a plain
// line-based accessible mode so pipes and scripts keep working.
package tui
