// SPDX-License-Identifier: MPL-2.0

// Package procexectest provides a recording Executor for tests of packages
// that drive external tools.
package procexectest

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/thresh/thresh/internal/issue"
	"github.com/thresh/thresh/internal/procexec"
)

type (
	// Responder produces the result for a recorded command.
	// It returns ok=false to fall through to the recorder's default.
	Responder func(cmd procexec.Command) (procexec.Result, bool)

	// Recorder is a spy Executor. It records every command and answers from
	// a list of responders, first match wins. Unmatched commands succeed with
	// no output.
	Recorder struct {
		mu         sync.Mutex
		commands   []procexec.Command
		responders []Responder
		available  map[string]bool
		lookups    []string
	}
)

// compile-time interface check
var _ procexec.Executor = (*Recorder)(nil)

// NewRecorder creates a Recorder where no command is available.
func NewRecorder() *Recorder {
	return &Recorder{available: make(map[string]bool)}
}

// SetAvailable marks tool names as present on the PATH.
func (r *Recorder) SetAvailable(names ...string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.available[n] = true
	}
	return r
}

// Respond appends a responder.
func (r *Recorder) Respond(fn Responder) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responders = append(r.responders, fn)
	return r
}

// OnPrefix answers commands whose joined args start with prefix.
func (r *Recorder) OnPrefix(prefix string, res procexec.Result) *Recorder {
	return r.Respond(func(cmd procexec.Command) (procexec.Result, bool) {
		if strings.HasPrefix(strings.Join(cmd.Args, " "), prefix) {
			return res, true
		}
		return procexec.Result{}, false
	})
}

// Execute implements procexec.Executor.
func (r *Recorder) Execute(_ context.Context, cmd procexec.Command) procexec.Result {
	return r.record(cmd)
}

// ExecuteStreaming implements procexec.Executor, replaying output lines.
func (r *Recorder) ExecuteStreaming(_ context.Context, cmd procexec.Command, onLine func(string)) procexec.Result {
	res := r.record(cmd)
	if onLine != nil {
		for _, line := range res.Output {
			onLine(line)
		}
	}
	return res
}

// IsCommandAvailable implements procexec.Executor. Lookups are not recorded
// as commands.
func (r *Recorder) IsCommandAvailable(_ context.Context, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, name)
	return r.available[name]
}

func (r *Recorder) record(cmd procexec.Command) procexec.Result {
	r.mu.Lock()
	r.commands = append(r.commands, procexec.Command{
		Args:    slices.Clone(cmd.Args),
		Timeout: cmd.Timeout,
		Env:     cmd.Env,
	})
	responders := slices.Clone(r.responders)
	r.mu.Unlock()

	if len(cmd.Args) == 0 {
		return procexec.Result{ExitCode: -1, Err: procexec.ErrNoCommand}
	}
	for _, fn := range responders {
		if res, ok := fn(cmd); ok {
			return res
		}
	}
	return procexec.Result{Success: true}
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []procexec.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.commands)
}

// CommandLines returns each recorded command joined by spaces.
func (r *Recorder) CommandLines() []string {
	cmds := r.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = strings.Join(c.Args, " ")
	}
	return lines
}

// Count returns the number of recorded commands.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

// Lookups returns the names passed to IsCommandAvailable.
func (r *Recorder) Lookups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lookups)
}

// Matching returns the recorded command lines containing substr.
func (r *Recorder) Matching(substr string) []string {
	var out []string
	for _, line := range r.CommandLines() {
		if strings.Contains(line, substr) {
			out = append(out, line)
		}
	}
	return out
}

// Ok builds a successful result with the given output lines.
func Ok(lines ...string) procexec.Result {
	return procexec.Result{Success: true, Output: lines}
}

// Fail builds a failed result with the given exit code and stderr lines.
func Fail(code int, stderr ...string) procexec.Result {
	return procexec.Result{
		ExitCode: code,
		Output:   stderr,
		Stderr:   stderr,
		Err:      &issue.ToolError{ExitCode: code, Output: strings.Join(stderr, "\n")},
	}
}
