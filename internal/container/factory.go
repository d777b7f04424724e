// SPDX-License-Identifier: MPL-2.0

package container

import (
	"runtime"

	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/platform"
	"github.com/thresh/thresh/internal/procexec"
)

// New creates the backend for kind. RuntimeAuto (or "") selects WSL on
// Windows and the containerd family elsewhere; a forced containerd tool
// skips detection.
func New(kind config.RuntimeKind, opts ...Option) (Backend, error) {
	if kind == "" {
		kind = config.RuntimeAuto
	}
	if ok, errs := kind.IsValid(); !ok {
		return nil, errs[0]
	}

	switch kind {
	case config.RuntimeWSL:
		return NewWSL(opts...), nil
	case config.RuntimeNerdctl, config.RuntimeDocker, config.RuntimeCtr:
		o := resolveOptions(opts)
		opts = append(opts, WithExecutor(o.executor), WithDetector(FixedDetector{Tool: forcedTool(kind, o.executor)}))
		return NewContainerd(opts...), nil
	default:
		if runtime.GOOS == platform.Windows {
			return NewWSL(opts...), nil
		}
		return NewContainerd(opts...), nil
	}
}

func forcedTool(kind config.RuntimeKind, x procexec.Executor) Tool {
	switch kind {
	case config.RuntimeNerdctl:
		return NewNerdctlTool(x)
	case config.RuntimeDocker:
		return NewDockerTool(x)
	default:
		return NewCtrTool(x)
	}
}
