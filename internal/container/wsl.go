// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/thresh/thresh/internal/logging"
	"github.com/thresh/thresh/internal/procexec"
)

const (
	wslBinary = "wsl"
	// wslUTF8Env asks wsl.exe for UTF-8 instead of UTF-16 output.
	wslUTF8Env = "WSL_UTF8"
)

// WSLBackend runs environments as WSL distributions.
type WSLBackend struct {
	exec   procexec.Executor
	logger *log.Logger
	lookup BlueprintNameLookup
}

// compile-time interface checks
var (
	_ Backend        = (*WSLBackend)(nil)
	_ StoreInstaller = (*WSLBackend)(nil)
)

// NewWSL creates a WSL backend.
func NewWSL(opts ...Option) *WSLBackend {
	o := resolveOptions(opts)
	return &WSLBackend{exec: o.executor, logger: o.logger, lookup: o.lookup}
}

// RuntimeName implements Backend.
func (b *WSLBackend) RuntimeName() string { return "wsl" }

// PlatformName implements Backend.
func (b *WSLBackend) PlatformName() string { return "windows" }

// IsAvailable implements Backend.
func (b *WSLBackend) IsAvailable(ctx context.Context) bool {
	return b.exec.IsCommandAvailable(ctx, wslBinary)
}

// RuntimeInfo reads `wsl --version`, falling back to `wsl --status` and
// finally to whether `wsl --list --quiet` works at all.
func (b *WSLBackend) RuntimeInfo(ctx context.Context) RuntimeInfo {
	info := RuntimeInfo{Runtime: b.RuntimeName(), Platform: b.PlatformName()}
	if !b.IsAvailable(ctx) {
		info.Details = "Not available"
		return info
	}

	if res := b.run(ctx, 0, "--version"); res.Success && len(res.Output) > 0 {
		out := res.OutputText()
		if v, ok := ParseVersionField(out, "WSL version:"); ok {
			info.Available = true
			info.Version = v
			if kernel, ok := ParseVersionField(out, "Kernel version:"); ok {
				info.Details = "Kernel " + kernel
			}
			info.Raw = out
			info.ContainerCount = b.distributionCount(ctx)
			return info
		}
	}

	if res := b.run(ctx, 0, "--status"); res.Success {
		out := res.OutputText()
		for _, v := range []string{"WSL 2", "WSL 1"} {
			if strings.Contains(out, v) {
				info.Available = true
				info.Version = v
				info.ContainerCount = b.distributionCount(ctx)
				return info
			}
		}
	}

	if res := b.run(ctx, 0, "--list", "--quiet"); res.Success {
		info.Available = true
		info.Version = "WSL (version unknown)"
		info.ContainerCount = CountLines(res.Output)
		return info
	}

	info.Details = "Not functional"
	return info
}

// ListEnvironments parses `wsl --list --verbose`. A failing wsl command
// (including the "no installed distributions" exit) yields an empty list.
func (b *WSLBackend) ListEnvironments(ctx context.Context, includeAll bool) ([]Environment, error) {
	res := b.run(ctx, 0, "--list", "--verbose")
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list WSL distributions: %w", err)
	}
	if !res.Success {
		b.logger.Debug("wsl --list failed, reporting no environments", "error", res.Err)
		return []Environment{}, nil
	}

	envs := make([]Environment, 0, len(res.Output))
	for _, line := range res.Output {
		entry, ok := ParseWSLListLine(line)
		if !ok {
			continue
		}
		if !includeAll && !strings.HasPrefix(entry.Name, IdentifierPrefix) {
			continue
		}
		envs = append(envs, newEnvironment(entry.Name, ParseStatus(entry.State), entry.Version, b.lookup))
	}
	return envs, nil
}

// FindEnvironment implements Backend.
func (b *WSLBackend) FindEnvironment(ctx context.Context, name string) (*Environment, error) {
	envs, err := b.ListEnvironments(ctx, false)
	if err != nil {
		return nil, err
	}
	return findIn(envs, name), nil
}

// EnvironmentExists implements Backend.
func (b *WSLBackend) EnvironmentExists(ctx context.Context, name string) bool {
	env, err := b.FindEnvironment(ctx, name)
	return err == nil && env != nil
}

// Start boots the distribution by running a trivial command in it.
func (b *WSLBackend) Start(ctx context.Context, name string) error {
	return b.lifecycle(ctx, "start", name, 0, "-d", BackendIdentifier(name), "echo", "started")
}

// Stop implements Backend.
func (b *WSLBackend) Stop(ctx context.Context, name string) error {
	return b.lifecycle(ctx, "stop", name, 0, "--terminate", BackendIdentifier(name))
}

// Remove unregisters the distribution, deleting its virtual disk.
func (b *WSLBackend) Remove(ctx context.Context, name string) error {
	return b.lifecycle(ctx, "remove", name, 0, "--unregister", BackendIdentifier(name))
}

// ImportEnvironment registers source (a rootfs tarball) as a new
// distribution stored under installPath, which is created first.
func (b *WSLBackend) ImportEnvironment(ctx context.Context, name, source, installPath string) error {
	if err := os.MkdirAll(installPath, 0o755); err != nil {
		return fmt.Errorf("create install directory %s: %w", installPath, err)
	}
	return b.lifecycle(ctx, "import", name, ImportTimeout, "--import", BackendIdentifier(name), installPath, source)
}

// ExecuteCommand implements Backend.
func (b *WSLBackend) ExecuteCommand(ctx context.Context, name, shellCommand string) procexec.Result {
	return b.StreamCommand(ctx, name, shellCommand, nil)
}

// StreamCommand runs shellCommand through sh -c inside the distribution.
// The command travels as a single argv element.
func (b *WSLBackend) StreamCommand(ctx context.Context, name, shellCommand string, onLine func(string)) procexec.Result {
	return execute(ctx, b.exec, b.command(ExecTimeout, "-d", BackendIdentifier(name), "--", "sh", "-c", shellCommand), onLine)
}

// InstallFromStore installs storeName without launching it.
func (b *WSLBackend) InstallFromStore(ctx context.Context, storeName string) error {
	res := b.run(ctx, StoreInstallTimeout, "--install", storeName, "--no-launch")
	if err := resultErr(res); err != nil {
		return fmt.Errorf("install %s from store: %w", storeName, err)
	}
	return nil
}

// Export writes a distribution's filesystem to archivePath.
func (b *WSLBackend) Export(ctx context.Context, distributionName, archivePath string) error {
	res := b.run(ctx, ExportTimeout, "--export", distributionName, archivePath)
	if err := resultErr(res); err != nil {
		return fmt.Errorf("export %s: %w", distributionName, err)
	}
	return nil
}

// Unregister removes a distribution by its raw WSL name.
func (b *WSLBackend) Unregister(ctx context.Context, distributionName string) error {
	res := b.run(ctx, UnregisterTimeout, "--unregister", distributionName)
	if err := resultErr(res); err != nil {
		return fmt.Errorf("unregister %s: %w", distributionName, err)
	}
	return nil
}

func (b *WSLBackend) lifecycle(ctx context.Context, op, name string, timeout time.Duration, args ...string) error {
	if err := resultErr(b.run(ctx, timeout, args...)); err != nil {
		return fmt.Errorf("%s %s: %w", op, BackendIdentifier(name), err)
	}
	return nil
}

func (b *WSLBackend) distributionCount(ctx context.Context) int {
	res := b.run(ctx, 0, "--list", "--quiet")
	if !res.Success {
		return 0
	}
	return CountLines(res.Output)
}

func (b *WSLBackend) run(ctx context.Context, timeout time.Duration, args ...string) procexec.Result {
	return b.exec.Execute(ctx, b.command(timeout, args...))
}

func (b *WSLBackend) command(timeout time.Duration, args ...string) procexec.Command {
	return procexec.Command{
		Args:    append([]string{wslBinary}, args...),
		Timeout: timeout,
		Env:     map[string]string{wslUTF8Env: "1"},
	}
}

func resolveOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.executor == nil {
		o.executor = procexec.New()
	}
	o.logger = logging.OrDiscard(o.logger)
	return o
}
