// SPDX-License-Identifier: MPL-2.0

package procexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/thresh/thresh/internal/issue"
)

const (
	// DefaultTimeout applies when a Command does not set one.
	DefaultTimeout = 30 * time.Second

	// AvailabilityTimeout bounds the where/which lookup of IsCommandAvailable.
	AvailabilityTimeout = 5 * time.Second

	// waitDelay bounds how long Wait keeps waiting for output pipes after the
	// process exits or is killed, so orphaned grandchildren cannot hold it.
	waitDelay = 2 * time.Second
)

// ErrNoCommand is returned in Result.Err for an empty argument list.
var ErrNoCommand = errors.New("no command specified")

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// Implementations must honor ctx; the executor relies on it for timeouts.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Command describes one external invocation.
	Command struct {
		// Args is the program followed by its arguments.
		Args []string
		// Timeout bounds the run; zero means DefaultTimeout.
		Timeout time.Duration
		// Env is overlaid on the inherited environment.
		Env map[string]string
	}

	// Result is the outcome of a command. It is never nil-able: spawn errors,
	// timeouts and non-zero exits are all reported through it.
	Result struct {
		// Success is true when the process exited with code 0.
		Success bool
		// ExitCode is the process exit code, or -1 when no exit code exists.
		ExitCode int
		// Output holds stdout and stderr lines in arrival order.
		Output []string
		// Stderr holds only the stderr lines.
		Stderr []string
		// Err is set whenever Success is false.
		Err error
	}

	// TimeoutError is the Result.Err of a command killed by its timeout.
	TimeoutError struct {
		Timeout time.Duration
	}

	// Executor runs external commands.
	Executor interface {
		// Execute runs the command to completion.
		Execute(ctx context.Context, cmd Command) Result
		// ExecuteStreaming runs the command and calls onLine for every output
		// line as it arrives. Calls for one execution never overlap.
		ExecuteStreaming(ctx context.Context, cmd Command, onLine func(line string)) Result
		// IsCommandAvailable reports whether name resolves on the PATH.
		IsCommandAvailable(ctx context.Context, name string) bool
	}

	// Option configures a CommandExecutor.
	Option func(*CommandExecutor)

	// CommandExecutor is the os/exec backed Executor.
	CommandExecutor struct {
		execCommand ExecCommandFunc
		lookupTool  string
	}
)

// compile-time interface check
var _ Executor = (*CommandExecutor)(nil)

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("process timed out after %s", e.Timeout)
}

// Is lets errors.Is(err, context.DeadlineExceeded) match timeouts.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// WithExecCommand overrides how exec.Cmd values are created.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(e *CommandExecutor) {
		e.execCommand = fn
	}
}

// WithLookupTool overrides the where/which tool used by IsCommandAvailable.
func WithLookupTool(tool string) Option {
	return func(e *CommandExecutor) {
		e.lookupTool = tool
	}
}

// New creates a CommandExecutor.
func New(opts ...Option) *CommandExecutor {
	e := &CommandExecutor{
		execCommand: exec.CommandContext,
		lookupTool:  defaultLookupTool(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute implements Executor.
func (e *CommandExecutor) Execute(ctx context.Context, c Command) Result {
	return e.run(ctx, c, nil)
}

// ExecuteStreaming implements Executor.
func (e *CommandExecutor) ExecuteStreaming(ctx context.Context, c Command, onLine func(string)) Result {
	return e.run(ctx, c, onLine)
}

// IsCommandAvailable implements Executor using where on Windows and which elsewhere.
func (e *CommandExecutor) IsCommandAvailable(ctx context.Context, name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	res := e.Execute(ctx, Command{
		Args:    []string{e.lookupTool, name},
		Timeout: AvailabilityTimeout,
	})
	return res.Success
}

func (e *CommandExecutor) run(ctx context.Context, c Command, onLine func(string)) Result {
	if len(c.Args) == 0 || c.Args[0] == "" {
		return Result{ExitCode: -1, Err: ErrNoCommand}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := e.execCommand(runCtx, c.Args[0], c.Args[1:]...)
	if len(c.Env) > 0 {
		cmd.Env = mergeEnv(cmd.Env, c.Env)
	}
	killProcessTreeOnCancel(cmd)
	cmd.WaitDelay = waitDelay

	out := newLineCollector(onLine)
	cmd.Stdout = out.stream(false)
	cmd.Stderr = out.stream(true)

	err := cmd.Run()
	out.flush()

	res := Result{Output: out.output, Stderr: out.stderr}
	switch {
	case err == nil:
		res.Success = true
		return res
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.ExitCode = -1
		res.Err = &TimeoutError{Timeout: timeout}
		return res
	case ctx.Err() != nil:
		res.ExitCode = -1
		res.Err = fmt.Errorf("process canceled: %w", ctx.Err())
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		res.Err = &issue.ToolError{
			Command:  strings.Join(c.Args, " "),
			ExitCode: res.ExitCode,
			Output:   res.ErrorText(),
		}
		return res
	}

	res.ExitCode = -1
	res.Err = fmt.Errorf("process execution failed: %w", err)
	return res
}

// ErrorText returns the captured stderr, or the whole output when stderr is
// empty. It is the text surfaced to users for a failed command.
func (r Result) ErrorText() string {
	if len(r.Stderr) > 0 {
		return strings.Join(r.Stderr, "\n")
	}
	return strings.Join(r.Output, "\n")
}

// OutputText joins the output lines.
func (r Result) OutputText() string {
	return strings.Join(r.Output, "\n")
}

func mergeEnv(base []string, overrides map[string]string) []string {
	if base == nil {
		base = os.Environ()
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := append([]string(nil), base...)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

func defaultLookupTool() string {
	if runtime.GOOS == "windows" {
		return "where"
	}
	return "which"
}
