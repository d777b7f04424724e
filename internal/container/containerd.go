// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/thresh/thresh/internal/procexec"
)

// unknownRuntimeName is reported while no containerd-family tool is found.
const unknownRuntimeName = "container-runtime"

// ContainerdBackend runs environments as containers through nerdctl, docker
// or ctr. The tool is detected on first use and kept for the lifetime of the
// backend; detection is retried as long as nothing has been found.
type ContainerdBackend struct {
	exec     procexec.Executor
	logger   *log.Logger
	lookup   BlueprintNameLookup
	detector Detector

	mu   sync.Mutex
	tool Tool
}

// compile-time interface check
var _ Backend = (*ContainerdBackend)(nil)

// NewContainerd creates a containerd-family backend. Without WithDetector it
// searches the PATH through the backend's executor.
func NewContainerd(opts ...Option) *ContainerdBackend {
	o := resolveOptions(opts)
	if o.detector == nil {
		o.detector = NewPathDetector(o.executor)
	}
	return &ContainerdBackend{exec: o.executor, logger: o.logger, lookup: o.lookup, detector: o.detector}
}

// Tool returns the detected tool, or nil.
func (b *ContainerdBackend) Tool(ctx context.Context) Tool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tool == nil {
		b.tool = b.detector.Detect(ctx)
		if b.tool != nil {
			b.logger.Debug("detected container tool", "tool", b.tool.Name())
		}
	}
	return b.tool
}

// RuntimeName reports the detected tool without triggering detection.
func (b *ContainerdBackend) RuntimeName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tool == nil {
		return unknownRuntimeName
	}
	return b.tool.RuntimeName()
}

// PlatformName implements Backend.
func (b *ContainerdBackend) PlatformName() string { return "linux" }

// IsAvailable implements Backend.
func (b *ContainerdBackend) IsAvailable(ctx context.Context) bool {
	return b.Tool(ctx) != nil
}

// RuntimeInfo implements Backend.
func (b *ContainerdBackend) RuntimeInfo(ctx context.Context) RuntimeInfo {
	tool := b.Tool(ctx)
	if tool == nil {
		return RuntimeInfo{
			Runtime:  unknownRuntimeName,
			Platform: b.PlatformName(),
			Details:  "No container runtime found (tried nerdctl, docker, ctr)",
		}
	}
	info := tool.Info(ctx)
	info.Platform = b.PlatformName()
	if info.Available {
		info.ContainerCount = tool.Count(ctx)
	}
	return info
}

// ListEnvironments implements Backend.
func (b *ContainerdBackend) ListEnvironments(ctx context.Context, includeAll bool) ([]Environment, error) {
	tool := b.Tool(ctx)
	if tool == nil {
		return []Environment{}, nil
	}
	entries, err := tool.List(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("list containers: %w", ctxErr)
		}
		b.logger.Debug("container listing failed, reporting no environments", "tool", tool.Name(), "error", err)
		return []Environment{}, nil
	}

	envs := make([]Environment, 0, len(entries))
	for _, e := range entries {
		if !includeAll && !strings.HasPrefix(e.Name, IdentifierPrefix) {
			continue
		}
		status := StatusUnknown
		version := "containerd"
		if e.State != "" {
			status = ContainerStatus(e.State)
			version = tool.RuntimeName()
		}
		envs = append(envs, newEnvironment(e.Name, status, version, b.lookup))
	}
	return envs, nil
}

// FindEnvironment implements Backend.
func (b *ContainerdBackend) FindEnvironment(ctx context.Context, name string) (*Environment, error) {
	envs, err := b.ListEnvironments(ctx, false)
	if err != nil {
		return nil, err
	}
	return findIn(envs, name), nil
}

// EnvironmentExists implements Backend.
func (b *ContainerdBackend) EnvironmentExists(ctx context.Context, name string) bool {
	env, err := b.FindEnvironment(ctx, name)
	return err == nil && env != nil
}

// Start implements Backend.
func (b *ContainerdBackend) Start(ctx context.Context, name string) error {
	return b.withTool(ctx, "start", name, func(t Tool, id string) error { return t.Start(ctx, id) })
}

// Stop implements Backend.
func (b *ContainerdBackend) Stop(ctx context.Context, name string) error {
	return b.withTool(ctx, "stop", name, func(t Tool, id string) error { return t.Stop(ctx, id) })
}

// Remove implements Backend.
func (b *ContainerdBackend) Remove(ctx context.Context, name string) error {
	return b.withTool(ctx, "remove", name, func(t Tool, id string) error { return t.Remove(ctx, id) })
}

// ImportEnvironment creates and starts a container from source, a rootfs
// archive or an image reference. installPath is not used by containers.
func (b *ContainerdBackend) ImportEnvironment(ctx context.Context, name, source, _ string) error {
	return b.withTool(ctx, "import", name, func(t Tool, id string) error { return t.Import(ctx, id, name, source) })
}

// ExecuteCommand implements Backend.
func (b *ContainerdBackend) ExecuteCommand(ctx context.Context, name, shellCommand string) procexec.Result {
	return b.StreamCommand(ctx, name, shellCommand, nil)
}

// StreamCommand implements Backend.
func (b *ContainerdBackend) StreamCommand(ctx context.Context, name, shellCommand string, onLine func(string)) procexec.Result {
	tool := b.Tool(ctx)
	if tool == nil {
		return procexec.Result{ExitCode: -1, Err: ErrNoRuntime}
	}
	return tool.Exec(ctx, BackendIdentifier(name), shellCommand, onLine)
}

func (b *ContainerdBackend) withTool(ctx context.Context, op, name string, fn func(Tool, string) error) error {
	tool := b.Tool(ctx)
	if tool == nil {
		return ErrNoRuntime
	}
	id := BackendIdentifier(name)
	if err := fn(tool, id); err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	return nil
}
