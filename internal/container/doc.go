// SPDX-License-Identifier: MPL-2.0

// Package container abstracts the runtimes that host thresh environments.
//
// Backend is implemented by WSLBackend, which drives wsl.exe on Windows, and
// ContainerdBackend, which drives one of nerdctl, docker or ctr. The
// containerd tools differ in output formats and capabilities, so each is a
// Tool strategy and ContainerdBackend never branches on the tool name.
//
// Runtime state is observed, never cached: every query re-runs the external
// tool. Text output is parsed by pure functions (ParseWSLListLine,
// ParseContainerJSONLine, ParseCtrListLine) that are tested against captured
// lines.
package container
