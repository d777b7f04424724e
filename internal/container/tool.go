// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thresh/thresh/internal/issue"
	"github.com/thresh/thresh/internal/procexec"
)

const (
	toolNerdctl = "nerdctl"
	toolDocker  = "docker"
	toolCtr     = "ctr"

	// imageRepository namespaces images imported from rootfs archives.
	imageRepository = "thresh/"
)

type (
	// Tool is one containerd-family CLI. Each implementation owns the
	// command shapes and output quirks of its binary.
	Tool interface {
		// Name is the binary name.
		Name() string
		// RuntimeName is the name reported in RuntimeInfo and listings.
		RuntimeName() string
		List(ctx context.Context) ([]ContainerEntry, error)
		Start(ctx context.Context, id string) error
		Stop(ctx context.Context, id string) error
		Remove(ctx context.Context, id string) error
		// Import creates and starts container id (hostname name) from source,
		// a rootfs archive path or an image reference.
		Import(ctx context.Context, id, name, source string) error
		Exec(ctx context.Context, id, shellCommand string, onLine func(string)) procexec.Result
		Info(ctx context.Context) RuntimeInfo
		Count(ctx context.Context) int
	}

	// cliTool is the docker-compatible CLI shared by nerdctl and docker.
	cliTool struct {
		exec   procexec.Executor
		binary string
		// psFormat is the --format argument that yields one JSON object per line.
		psFormat string
		// fallback lists containers when `ps` fails.
		fallback Tool
	}

	nerdctlTool struct{ cliTool }

	dockerTool struct{ cliTool }

	ctrTool struct {
		exec procexec.Executor
	}
)

// compile-time interface checks
var (
	_ Tool = (*nerdctlTool)(nil)
	_ Tool = (*dockerTool)(nil)
	_ Tool = (*ctrTool)(nil)
)

// NewNerdctlTool returns the nerdctl strategy.
func NewNerdctlTool(x procexec.Executor) Tool {
	return &nerdctlTool{cliTool{exec: x, binary: toolNerdctl, psFormat: "json", fallback: NewCtrTool(x)}}
}

// NewDockerTool returns the docker strategy. docker only accepts a Go
// template for line-delimited JSON.
func NewDockerTool(x procexec.Executor) Tool {
	return &dockerTool{cliTool{exec: x, binary: toolDocker, psFormat: "{{json .}}", fallback: NewCtrTool(x)}}
}

// NewCtrTool returns the ctr strategy.
func NewCtrTool(x procexec.Executor) Tool {
	return &ctrTool{exec: x}
}

func (t *cliTool) Name() string        { return t.binary }
func (t *cliTool) RuntimeName() string { return t.binary }

func (t *cliTool) List(ctx context.Context) ([]ContainerEntry, error) {
	res := t.run(ctx, 0, "ps", "-a", "--format", t.psFormat)
	if !res.Success {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if t.fallback != nil {
			return t.fallback.List(ctx)
		}
		return nil, resultErr(res)
	}

	entries := make([]ContainerEntry, 0, len(res.Output))
	for _, line := range res.Output {
		if entry, ok := ParseContainerJSONLine(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (t *cliTool) Start(ctx context.Context, id string) error {
	return resultErr(t.run(ctx, 0, "start", id))
}

func (t *cliTool) Stop(ctx context.Context, id string) error {
	return resultErr(t.run(ctx, 0, "stop", id))
}

// Remove stops the container first; a container that is already stopped
// makes stop fail, which is fine.
func (t *cliTool) Remove(ctx context.Context, id string) error {
	_ = t.Stop(ctx, id)
	return resultErr(t.run(ctx, 0, "rm", id))
}

func (t *cliTool) Import(ctx context.Context, id, name, source string) error {
	image := source
	if isFile(source) {
		image = imageRepository + name + ":latest"
		if err := resultErr(t.run(ctx, ImportTimeout, "import", source, image)); err != nil {
			return fmt.Errorf("import image: %w", err)
		}
	}
	if err := resultErr(t.run(ctx, 0, "create", "--name", id, "--hostname", name, image, "sleep", "infinity")); err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	if err := t.Start(ctx, id); err != nil {
		return fmt.Errorf("start container: %w", err)
	}
	return nil
}

func (t *cliTool) Exec(ctx context.Context, id, shellCommand string, onLine func(string)) procexec.Result {
	return execute(ctx, t.exec, procexec.Command{
		Args:    []string{t.binary, "exec", id, "sh", "-c", shellCommand},
		Timeout: ExecTimeout,
	}, onLine)
}

func (t *cliTool) Info(ctx context.Context) RuntimeInfo {
	info := RuntimeInfo{Runtime: t.binary}
	if res := t.run(ctx, 0, "version", "--format", "json"); res.Success {
		if client, server, ok := ParseVersionJSON(res.OutputText()); ok {
			info.Available = true
			info.Version = server
			info.Details = strings.TrimSpace(t.binary + " " + client)
			info.Raw = res.OutputText()
			return info
		}
	}
	if res := t.run(ctx, 0, "version"); res.Success {
		info.Available = true
		info.Raw = res.OutputText()
		if v, ok := ParseVersionField(info.Raw, "Version:"); ok {
			info.Version = v
		}
		info.Details = t.binary
		return info
	}
	info.Details = t.binary + " is installed but not responding"
	return info
}

func (t *cliTool) Count(ctx context.Context) int {
	res := t.run(ctx, 0, "ps", "-a", "-q")
	if !res.Success {
		if t.fallback != nil {
			return t.fallback.Count(ctx)
		}
		return 0
	}
	return CountLines(res.Output)
}

func (t *cliTool) run(ctx context.Context, timeout time.Duration, args ...string) procexec.Result {
	return t.exec.Execute(ctx, procexec.Command{Args: append([]string{t.binary}, args...), Timeout: timeout})
}

func (t *ctrTool) Name() string        { return toolCtr }
func (t *ctrTool) RuntimeName() string { return "containerd" }

func (t *ctrTool) List(ctx context.Context) ([]ContainerEntry, error) {
	res := t.run(ctx, "containers", "list")
	if !res.Success {
		return nil, resultErr(res)
	}
	entries := make([]ContainerEntry, 0, len(res.Output))
	for _, line := range res.Output {
		if entry, ok := ParseCtrListLine(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (t *ctrTool) Start(context.Context, string) error {
	return &issue.UnsupportedError{Runtime: toolCtr, Operation: "start"}
}

func (t *ctrTool) Stop(context.Context, string) error {
	return &issue.UnsupportedError{Runtime: toolCtr, Operation: "stop"}
}

func (t *ctrTool) Remove(ctx context.Context, id string) error {
	return resultErr(t.run(ctx, "containers", "delete", id))
}

func (t *ctrTool) Import(context.Context, string, string, string) error {
	return &issue.UnsupportedError{Runtime: toolCtr, Operation: "import"}
}

// Exec runs the command as an extra process of the container's task.
// It fails when the container has no running task.
func (t *ctrTool) Exec(ctx context.Context, id, shellCommand string, onLine func(string)) procexec.Result {
	return execute(ctx, t.exec, procexec.Command{
		Args:    []string{toolCtr, "tasks", "exec", "--exec-id", uuid.NewString(), id, "sh", "-c", shellCommand},
		Timeout: ExecTimeout,
	}, onLine)
}

func (t *ctrTool) Info(ctx context.Context) RuntimeInfo {
	info := RuntimeInfo{Runtime: t.RuntimeName()}
	res := t.run(ctx, "version")
	if !res.Success {
		info.Details = "ctr is installed but containerd is not responding"
		return info
	}
	info.Available = true
	info.Raw = res.OutputText()
	if v, ok := ParseVersionField(info.Raw, "Version:"); ok {
		info.Version = v
	}
	info.Details = toolCtr
	return info
}

func (t *ctrTool) Count(ctx context.Context) int {
	res := t.run(ctx, "containers", "list", "-q")
	if !res.Success {
		return 0
	}
	return CountLines(res.Output)
}

func (t *ctrTool) run(ctx context.Context, args ...string) procexec.Result {
	return t.exec.Execute(ctx, procexec.Command{Args: append([]string{toolCtr}, args...)})
}

func execute(ctx context.Context, x procexec.Executor, cmd procexec.Command, onLine func(string)) procexec.Result {
	if onLine == nil {
		return x.Execute(ctx, cmd)
	}
	return x.ExecuteStreaming(ctx, cmd, onLine)
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
