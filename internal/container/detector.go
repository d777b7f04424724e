// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"

	"github.com/thresh/thresh/internal/procexec"
)

type (
	// Detector finds the containerd-family tool to drive. Detect returns nil
	// when no tool is installed.
	Detector interface {
		Detect(ctx context.Context) Tool
	}

	// PathDetector looks for nerdctl, docker and ctr on the PATH, in that order.
	PathDetector struct {
		exec procexec.Executor
	}

	// FixedDetector always returns the same tool. A nil Tool reports that
	// nothing is installed.
	FixedDetector struct {
		Tool Tool
	}
)

// compile-time interface checks
var (
	_ Detector = (*PathDetector)(nil)
	_ Detector = FixedDetector{}
)

// NewPathDetector creates a PathDetector backed by x.
func NewPathDetector(x procexec.Executor) *PathDetector {
	return &PathDetector{exec: x}
}

// Detect implements Detector.
func (d *PathDetector) Detect(ctx context.Context) Tool {
	candidates := []struct {
		binary string
		build  func(procexec.Executor) Tool
	}{
		{toolNerdctl, NewNerdctlTool},
		{toolDocker, NewDockerTool},
		{toolCtr, NewCtrTool},
	}
	for _, c := range candidates {
		if d.exec.IsCommandAvailable(ctx, c.binary) {
			return c.build(d.exec)
		}
	}
	return nil
}

// Detect implements Detector.
func (d FixedDetector) Detect(context.Context) Tool { return d.Tool }
