// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is wrapped by NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is wrapped by AlreadyExistsError.
	ErrAlreadyExists = errors.New("already exists")

	// ErrExternalTool is wrapped by ToolError.
	ErrExternalTool = errors.New("external tool failed")

	// ErrTransport is wrapped by TransportError.
	ErrTransport = errors.New("transport failure")

	// ErrUnsupportedOperation is wrapped by UnsupportedError.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

type (
	// NotFoundError reports an unknown blueprint, distribution or environment.
	// Valid lists the names the caller could have used instead.
	NotFoundError struct {
		Kind  string
		Name  string
		Valid []string
	}

	// AlreadyExistsError reports an environment name collision.
	AlreadyExistsError struct {
		Kind string
		Name string
	}

	// ToolError reports a non-zero exit from wsl, nerdctl, docker, ctr or a
	// shell running inside an environment.
	ToolError struct {
		// Command is the human readable command line or a short label for it.
		Command string
		// ExitCode is the process exit code, -1 for timeouts and spawn failures.
		ExitCode int
		// Output is the captured stderr, or the whole output when stderr was empty.
		Output string
		// Err is an optional underlying cause (timeout, spawn failure).
		Err error
	}

	// TransportError wraps a rootfs download failure.
	TransportError struct {
		URL         string
		Destination string
		Err         error
	}

	// UnsupportedError reports a capability the active runtime cannot express.
	UnsupportedError struct {
		Runtime   string
		Operation string
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %q not found", e.Kind, e.Name)
	if len(e.Valid) > 0 {
		msg += " (available: " + strings.Join(e.Valid, ", ") + ")"
	}
	return msg
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Name)
}

// Unwrap returns ErrAlreadyExists for errors.Is() compatibility.
func (e *AlreadyExistsError) Unwrap() error { return ErrAlreadyExists }

// Error implements the error interface.
func (e *ToolError) Error() string {
	var msg strings.Builder
	if e.ExitCode >= 0 {
		fmt.Fprintf(&msg, "command failed with exit code %d", e.ExitCode)
	} else {
		msg.WriteString("command failed")
	}
	if e.Command != "" {
		fmt.Fprintf(&msg, " (%s)", e.Command)
	}
	switch {
	case e.Output != "":
		msg.WriteString(": ")
		msg.WriteString(e.Output)
	case e.Err != nil:
		msg.WriteString(": ")
		msg.WriteString(e.Err.Error())
	}
	return msg.String()
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ToolError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrExternalTool, e.Err}
	}
	return []error{ErrExternalTool}
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to download rootfs from %s to %s: %v", e.URL, e.Destination, e.Err)
}

// Unwrap exposes both the sentinel and the network error.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by %s", e.Operation, e.Runtime)
}

// Unwrap returns ErrUnsupportedOperation for errors.Is() compatibility.
func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedOperation }

// Kinds used in NotFoundError and AlreadyExistsError.
const (
	KindBlueprint    = "blueprint"
	KindDistribution = "distribution"
	KindEnvironment  = "environment"
)

// Classify maps an error to the catalog entry that explains it.
// It returns 0 when no entry applies.
func Classify(err error) Id {
	if err == nil {
		return 0
	}

	var ae *ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}

	var nf *NotFoundError
	if errors.As(err, &nf) {
		switch nf.Kind {
		case KindDistribution:
			return UnsupportedDistributionId
		case KindBlueprint:
			return BlueprintNotFoundId
		case KindEnvironment:
			return EnvironmentNotFoundId
		}
	}

	switch {
	case errors.Is(err, ErrAlreadyExists):
		return EnvironmentExistsId
	case errors.Is(err, ErrTransport):
		return DownloadFailedId
	case errors.Is(err, ErrUnsupportedOperation):
		return UnsupportedOperationId
	}
	return 0
}
