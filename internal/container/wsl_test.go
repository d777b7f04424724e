// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/thresh/thresh/internal/issue"
	"github.com/thresh/thresh/internal/procexec/procexectest"
)

const wslListOutput = `  NAME              STATE           VERSION
* Ubuntu-22.04      Running         2
  thresh-myenv      Stopped         2
  thresh-web        Running         2
`

func newTestWSL(rec *procexectest.Recorder) *WSLBackend {
	lookup := func(name string) string {
		if name == "web" {
			return "node-dev"
		}
		return ""
	}
	return NewWSL(WithExecutor(rec), WithBlueprintLookup(lookup))
}

func TestWSLBackend_ListEnvironments(t *testing.T) {
	t.Parallel()

	rec := procexectest.NewRecorder().OnPrefix("wsl --list --verbose", procexectest.Ok(splitLines(wslListOutput)...))
	b := newTestWSL(rec)

	managed, err := b.ListEnvironments(context.Background(), false)
	if err != nil {
		t.Fatalf("ListEnvironments() error = %v", err)
	}
	if len(managed) != 2 {
		t.Fatalf("got %d managed environments, want 2: %+v", len(managed), managed)
	}
	if managed[0].Name != "myenv" || managed[0].Status != StatusStopped || managed[0].BlueprintName != BlueprintUnknown {
		t.Errorf("unexpected first environment %+v", managed[0])
	}
	if managed[1].BlueprintName != "node-dev" {
		t.Errorf("BlueprintName = %q, want node-dev", managed[1].BlueprintName)
	}

	all, err := b.ListEnvironments(context.Background(), true)
	if err != nil {
		t.Fatalf("ListEnvironments(all) error = %v", err)
	}
	if len(all) != 3 || all[0].BlueprintName != BlueprintSystem {
		t.Errorf("unexpected full listing %+v", all)
	}

	for _, cmd := range rec.Commands() {
		if cmd.Env["WSL_UTF8"] != "1" {
			t.Errorf("command %v missing WSL_UTF8", cmd.Args)
		}
	}
}

func TestWSLBackend_ListFailureIsEmpty(t *testing.T) {
	t.Parallel()

	rec := procexectest.NewRecorder().OnPrefix("wsl --list", procexectest.Fail(-1, "Windows Subsystem for Linux has no installed distributions."))
	envs, err := newTestWSL(rec).ListEnvironments(context.Background(), false)
	if err != nil {
		t.Fatalf("ListEnvironments() error = %v", err)
	}
	if len(envs) != 0 {
		t.Errorf("expected no environments, got %+v", envs)
	}
}

func TestWSLBackend_FindEnvironment(t *testing.T) {
	t.Parallel()

	rec := procexectest.NewRecorder().OnPrefix("wsl --list --verbose", procexectest.Ok(splitLines(wslListOutput)...))
	b := newTestWSL(rec)
	ctx := context.Background()

	env, err := b.FindEnvironment(ctx, "web")
	if err != nil || env == nil {
		t.Fatalf("FindEnvironment(web) = %v, %v", env, err)
	}
	if env.BackendIdentifier != "thresh-web" {
		t.Errorf("BackendIdentifier = %q", env.BackendIdentifier)
	}
	if b.EnvironmentExists(ctx, "Ubuntu-22.04") {
		t.Error("unmanaged distributions are not thresh environments")
	}
	if b.EnvironmentExists(ctx, "missing") {
		t.Error("missing environment reported as existing")
	}
}

func TestWSLBackend_CommandShapes(t *testing.T) {
	t.Parallel()

	rec := procexectest.NewRecorder()
	b := newTestWSL(rec)
	ctx := context.Background()

	if err := b.Start(ctx, "demo"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := b.Stop(ctx, "demo"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	installPath := filepath.Join(t.TempDir(), "instances", "demo")
	if err := b.ImportEnvironment(ctx, "demo", "/cache/alpine.tar.gz", installPath); err != nil {
		t.Fatalf("ImportEnvironment() error = %v", err)
	}
	if info, err := os.Stat(installPath); err != nil || !info.IsDir() {
		t.Errorf("install directory not created: %v", err)
	}
	res := b.ExecuteCommand(ctx, "demo", "apk update && echo 'done'")
	if !res.Success {
		t.Fatalf("ExecuteCommand() failed: %v", res.Err)
	}
	if err := b.Remove(ctx, "demo"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	want := []string{
		"wsl -d thresh-demo echo started",
		"wsl --terminate thresh-demo",
		"wsl --import thresh-demo " + installPath + " /cache/alpine.tar.gz",
		"wsl -d thresh-demo -- sh -c apk update && echo 'done'",
		"wsl --unregister thresh-demo",
	}
	if got := rec.CommandLines(); !slices.Equal(got, want) {
		t.Errorf("commands =\n%q\nwant\n%q", got, want)
	}

	cmds := rec.Commands()
	if cmds[2].Timeout != ImportTimeout || cmds[3].Timeout != ExecTimeout {
		t.Errorf("unexpected timeouts import=%s exec=%s", cmds[2].Timeout, cmds[3].Timeout)
	}
	if got := cmds[3].Args[len(cmds[3].Args)-1]; got != "apk update && echo 'done'" {
		t.Errorf("shell command should be a single argument, got %q", got)
	}
}

func TestWSLBackend_FailureCarriesOutput(t *testing.T) {
	t.Parallel()

	rec := procexectest.NewRecorder().OnPrefix("wsl --import", procexectest.Fail(1, "The distribution name is already in use."))
	err := newTestWSL(rec).ImportEnvironment(context.Background(), "demo", "a.tar", t.TempDir())
	if err == nil {
		t.Fatal("expected an error")
	}
	var toolErr *issue.ToolError
	if !errors.As(err, &toolErr) || toolErr.Output != "The distribution name is already in use." {
		t.Errorf("error should carry the tool output, got %v", err)
	}
}

func TestWSLBackend_StoreInstaller(t *testing.T) {
	t.Parallel()

	rec := procexectest.NewRecorder()
	var b Backend = newTestWSL(rec)
	installer, ok := b.(StoreInstaller)
	if !ok {
		t.Fatal("WSL backend should install from the store")
	}
	ctx := context.Background()
	if err := installer.InstallFromStore(ctx, "Ubuntu-24.04"); err != nil {
		t.Fatal(err)
	}
	if err := installer.Export(ctx, "Ubuntu-24.04", "/tmp/u.tar"); err != nil {
		t.Fatal(err)
	}
	if err := installer.Unregister(ctx, "Ubuntu-24.04"); err != nil {
		t.Fatal(err)
	}

	cmds := rec.Commands()
	if len(cmds) != 3 {
		t.Fatalf("got %d commands", len(cmds))
	}
	if cmds[0].Timeout != StoreInstallTimeout || cmds[1].Timeout != ExportTimeout || cmds[2].Timeout != UnregisterTimeout {
		t.Errorf("unexpected timeouts %s %s %s", cmds[0].Timeout, cmds[1].Timeout, cmds[2].Timeout)
	}
	if got := rec.CommandLines()[0]; got != "wsl --install Ubuntu-24.04 --no-launch" {
		t.Errorf("install command = %q", got)
	}
}

func TestWSLBackend_RuntimeInfo(t *testing.T) {
	t.Parallel()

	t.Run("version output", func(t *testing.T) {
		t.Parallel()
		rec := procexectest.NewRecorder().SetAvailable("wsl").
			OnPrefix("wsl --version", procexectest.Ok("WSL version: 2.0.14.0", "Kernel version: 5.15.133.1-1")).
			OnPrefix("wsl --list --quiet", procexectest.Ok("Ubuntu", "thresh-demo", ""))
		info := newTestWSL(rec).RuntimeInfo(context.Background())
		if !info.Available || info.Version != "2.0.14.0" || info.Details != "Kernel 5.15.133.1-1" {
			t.Errorf("unexpected info %+v", info)
		}
		if info.ContainerCount != 2 {
			t.Errorf("ContainerCount = %d, want 2", info.ContainerCount)
		}
	})

	t.Run("status fallback", func(t *testing.T) {
		t.Parallel()
		rec := procexectest.NewRecorder().SetAvailable("wsl").
			OnPrefix("wsl --version", procexectest.Fail(-1, "Invalid command line option: --version")).
			OnPrefix("wsl --status", procexectest.Ok("Default Version: WSL 2"))
		info := newTestWSL(rec).RuntimeInfo(context.Background())
		if !info.Available || info.Version != "WSL 2" {
			t.Errorf("unexpected info %+v", info)
		}
	})

	t.Run("not installed", func(t *testing.T) {
		t.Parallel()
		rec := procexectest.NewRecorder()
		info := newTestWSL(rec).RuntimeInfo(context.Background())
		if info.Available || rec.Count() != 0 {
			t.Errorf("unexpected info %+v after %d commands", info, rec.Count())
		}
	})
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
