// SPDX-License-Identifier: MPL-2.0

// Package logging builds the structured loggers shared by thresh components.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options configures New.
type Options struct {
	// Prefix is printed before every message (e.g., "thresh").
	Prefix string
	// Verbose lowers the level to Debug.
	Verbose bool
	// Timestamps enables per-line timestamps.
	Timestamps bool
}

// New returns a logger writing to w. A nil writer means stderr.
func New(w io.Writer, opts Options) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamps,
		Level:           level,
	})
}

// Discard returns a logger that drops everything. Components use it when the
// caller does not supply one.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrDiscard returns l, or a discard logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
