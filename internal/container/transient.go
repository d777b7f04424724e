// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"strings"

	"github.com/thresh/thresh/internal/issue"
)

// engineErrorExitCode is the generic failure exit of docker and nerdctl.
const engineErrorExitCode = 125

// transientMarkers are output fragments of failures that usually clear up on
// their own: network hiccups during package installs or downloads, and a
// container daemon that is still starting.
var transientMarkers = []string{
	"Temporary failure resolving",
	"Could not resolve host",
	"connection timed out",
	"connection refused",
	"Cannot connect to the Docker daemon",
	"containerd.sock: connect",
	"OCI runtime error",
	"error creating overlay mount",
	"error mounting layer",
}

// IsTransientError reports whether err looks like a failure that may succeed
// when the user simply runs the same command again. thresh never retries on
// its own; the CLI uses this to phrase its hint.
//
// Cancellation and deadline errors are never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var toolErr *issue.ToolError
	if errors.As(err, &toolErr) && toolErr.ExitCode == engineErrorExitCode {
		return true
	}

	errStr := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
