// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrCancelled is returned when the user aborts a prompt with esc or ctrl+c.
var ErrCancelled = errors.New("user aborted")

const keyCtrlC = "ctrl+c"

// Config holds common configuration for TUI components.
type Config struct {
	// Accessible forces the line-based mode.
	Accessible bool
	// Input is where answers are read from (default: os.Stdin).
	Input io.Reader
	// Output is where prompts are written (default: os.Stderr in
	// accessible mode, os.Stdout otherwise).
	Output io.Writer
}

// DefaultConfig returns a configuration bound to the process streams.
// Accessible mode is enabled when stdin is not a terminal or ACCESSIBLE
// is set.
func DefaultConfig() Config {
	return Config{Accessible: !IsTerminal(os.Stdin) || os.Getenv("ACCESSIBLE") != ""}
}

// IsTerminal reports whether r is a file attached to a terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// shouldUseAccessible reports whether the line-based mode applies to cfg.
func shouldUseAccessible(cfg Config) bool {
	return cfg.Accessible || os.Getenv("ACCESSIBLE") != "" || !IsTerminal(inputReader(cfg))
}

func inputReader(cfg Config) io.Reader {
	if cfg.Input != nil {
		return cfg.Input
	}
	return os.Stdin
}

// getOutputWriter returns cfg.Output, or the stream matching the mode.
func getOutputWriter(cfg Config) io.Writer {
	if cfg.Output != nil {
		return cfg.Output
	}
	if shouldUseAccessible(cfg) {
		return os.Stderr
	}
	return os.Stdout
}
