// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thresh/thresh/internal/blueprint"
	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/issue"
	"github.com/thresh/thresh/internal/procexec"
	"github.com/thresh/thresh/internal/procexec/procexectest"
	"github.com/thresh/thresh/internal/provision"
	"github.com/thresh/thresh/internal/testutil"
)

const listHeader = "  NAME            STATE           VERSION"

type stubDownloader struct {
	calls atomic.Int32
}

func (d *stubDownloader) Download(_ context.Context, _ string, w io.Writer) error {
	d.calls.Add(1)
	_, err := io.WriteString(w, "rootfs")
	return err
}

// wslHost simulates wsl: imported environments show up in later listings
// and unregistered ones disappear.
type wslHost struct {
	mu   sync.Mutex
	envs []string
}

func (h *wslHost) respond(cmd procexec.Command) (procexec.Result, bool) {
	if len(cmd.Args) < 3 || cmd.Args[0] != "wsl" {
		return procexec.Result{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	switch cmd.Args[1] {
	case "--import":
		h.envs = append(h.envs, cmd.Args[2])
		return procexectest.Ok(), true
	case "--unregister":
		h.envs = slices.DeleteFunc(h.envs, func(id string) bool { return id == cmd.Args[2] })
		return procexectest.Ok(), true
	case "--list":
		lines := []string{listHeader, "* Ubuntu          Running         2"}
		for _, id := range h.envs {
			lines = append(lines, "  "+id+"    Stopped         2")
		}
		return procexectest.Ok(lines...), true
	}
	return procexec.Result{}, false
}

type harness struct {
	svc        *Service
	rec        *procexectest.Recorder
	host       *wslHost
	downloader *stubDownloader
	dataDir    string
}

func newHarness(t *testing.T, envs ...string) *harness {
	t.Helper()
	h := &harness{
		rec:        procexectest.NewRecorder().SetAvailable("wsl"),
		host:       &wslHost{envs: envs},
		downloader: &stubDownloader{},
		dataDir:    t.TempDir(),
	}
	h.rec.Respond(h.host.respond)

	cfg := config.DefaultConfig()
	cfg.Paths.DataDir = h.dataDir
	cfg.Paths.InstallDir = filepath.Join(h.dataDir, "instances")

	svc, err := New(cfg,
		WithRuntime(config.RuntimeWSL),
		WithExecutor(h.rec),
		WithDownloader(h.downloader),
		WithClock(testutil.NewFakeClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) imports() []string {
	return h.rec.Matching("--import")
}

func TestService_ProvisionAndList(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	bp := &blueprint.Blueprint{Name: "tools", Base: "ALPINE-3.19", Packages: []string{"git"}}

	res, err := h.svc.Provision(ctx, "demo", bp, ProvisionOptions{})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if !res.Succeeded() || len(res.Stages) != len(provision.Stages) {
		t.Errorf("unexpected result %+v", res)
	}

	wantImport := "wsl --import thresh-demo " +
		filepath.Join(h.dataDir, "instances", "demo") + " " +
		filepath.Join(h.dataDir, "rootfs-cache", "alpine-3.19.tar.gz")
	if got := h.imports(); len(got) != 1 || got[0] != wantImport {
		t.Errorf("imports = %q, want %q", got, wantImport)
	}
	if len(h.rec.Matching("apk add --no-cache git")) != 1 {
		t.Errorf("package install missing from %q", h.rec.CommandLines())
	}

	envs, err := h.svc.ListEnvironments(ctx, false)
	if err != nil {
		t.Fatalf("ListEnvironments() error = %v", err)
	}
	if len(envs) != 1 || envs[0].Name != "demo" || envs[0].BlueprintName != "tools" {
		t.Errorf("ListEnvironments() = %+v", envs)
	}

	all, err := h.svc.ListEnvironments(ctx, true)
	if err != nil || len(all) != 2 {
		t.Errorf("ListEnvironments(all) = %+v, %v", all, err)
	}
}

func TestService_ProvisionDefaultBase(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if _, err := h.svc.Provision(context.Background(), "demo", &blueprint.Blueprint{Name: "bare"}, ProvisionOptions{}); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if got := h.imports(); len(got) != 1 || !strings.HasSuffix(got[0], "ubuntu-22.04.tar.gz") {
		t.Errorf("imports = %q, want the default base", got)
	}
}

func TestService_ProvisionWithoutAnyBase(t *testing.T) {
	t.Parallel()

	rec := procexectest.NewRecorder().SetAvailable("wsl")
	cfg := config.DefaultConfig()
	cfg.DefaultBase = ""
	cfg.Paths.DataDir = t.TempDir()

	svc, err := New(cfg, WithRuntime(config.RuntimeWSL), WithExecutor(rec), WithDownloader(&stubDownloader{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = svc.Provision(context.Background(), "demo", &blueprint.Blueprint{Name: "bare"}, ProvisionOptions{})
	if !errors.Is(err, blueprint.ErrInvalidBlueprint) {
		t.Fatalf("Provision() error = %v, want ErrInvalidBlueprint", err)
	}
	if !strings.Contains(err.Error(), "base is required") {
		t.Errorf("error %q should name the missing base", err)
	}
	if rec.Count() != 0 {
		t.Errorf("no process may run: %q", rec.CommandLines())
	}
}

func TestService_ResumeFromBaseRefusesExisting(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "thresh-demo")
	bp := &blueprint.Blueprint{Name: "b", Base: "alpine-3.19"}
	_, err := h.svc.Provision(context.Background(), "demo", bp, ProvisionOptions{ResumeFrom: provision.StageBase})
	if !errors.Is(err, issue.ErrAlreadyExists) {
		t.Fatalf("Provision() error = %v, want AlreadyExists", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !strings.Contains(ae.Format(false), "thresh destroy demo") {
		t.Errorf("error should suggest destroying first: %v", err)
	}
	if len(h.imports()) != 0 || h.downloader.calls.Load() != 0 {
		t.Error("nothing should be imported or downloaded")
	}
}

func TestService_ProvisionRefusesExisting(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "thresh-demo")
	_, err := h.svc.Provision(context.Background(), "demo", &blueprint.Blueprint{Name: "b", Base: "alpine-3.19"}, ProvisionOptions{})
	if !errors.Is(err, issue.ErrAlreadyExists) {
		t.Fatalf("Provision() error = %v, want AlreadyExists", err)
	}
	if got := issue.Classify(err); got != issue.EnvironmentExistsId {
		t.Errorf("Classify() = %d, want EnvironmentExistsId", got)
	}
	if len(h.imports()) != 0 || h.downloader.calls.Load() != 0 {
		t.Error("nothing should be imported or downloaded")
	}
}

func TestService_ProvisionUnknownBase(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.svc.Provision(context.Background(), "demo", &blueprint.Blueprint{Name: "b", Base: "templeos-5"}, ProvisionOptions{})

	var nf *issue.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != issue.KindDistribution {
		t.Fatalf("Provision() error = %v, want distribution NotFoundError", err)
	}
	if h.rec.Count() != 0 || len(h.rec.Lookups()) != 0 {
		t.Errorf("no process may run: commands %q, lookups %q", h.rec.CommandLines(), h.rec.Lookups())
	}
}

func TestService_ProvisionInvalidInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.Provision(ctx, "../escape", &blueprint.Blueprint{Name: "b", Base: "alpine-3.19"}, ProvisionOptions{}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("bad name error = %v", err)
	}
	_, err := h.svc.Provision(ctx, "demo", &blueprint.Blueprint{Name: "b", Base: "alpine-3.19", Environment: map[string]string{"1X": "y"}}, ProvisionOptions{})
	if issue.Classify(err) != issue.BlueprintInvalidId {
		t.Errorf("invalid blueprint error = %v", err)
	}
	if _, err := h.svc.Provision(ctx, "demo", &blueprint.Blueprint{Name: "b", Base: "alpine-3.19"}, ProvisionOptions{ResumeFrom: "deploy"}); !errors.Is(err, provision.ErrUnknownStage) {
		t.Errorf("unknown stage error = %v", err)
	}
	if h.rec.Count() != 0 {
		t.Errorf("commands = %q", h.rec.CommandLines())
	}
}

func TestService_ProvisionRuntimeUnavailable(t *testing.T) {
	t.Parallel()

	svc, err := New(&config.Config{Paths: config.Paths{DataDir: t.TempDir()}},
		WithRuntime(config.RuntimeWSL),
		WithExecutor(procexectest.NewRecorder()))
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Provision(context.Background(), "demo", &blueprint.Blueprint{Name: "b", Base: "alpine-3.19"}, ProvisionOptions{})
	if got := issue.Classify(err); got != issue.RuntimeNotAvailableId {
		t.Errorf("Classify(%v) = %d, want RuntimeNotAvailableId", err, got)
	}
}

func TestService_ProvisionStageFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.rec.OnPrefix("wsl -d thresh-demo -- sh -c #!/bin/bash", procexectest.Fail(127, "sh: foo: not found"))
	bp := &blueprint.Blueprint{Name: "tools", Base: "alpine-3.19", Scripts: blueprint.Scripts{Setup: "foo"}}

	res, err := h.svc.Provision(context.Background(), "demo", bp, ProvisionOptions{})
	var se *provision.StageError
	if !errors.As(err, &se) || se.Stage != provision.StageSetup {
		t.Fatalf("Provision() error = %v, want setup StageError", err)
	}
	if got := issue.Classify(err); got != issue.StageFailedId {
		t.Errorf("Classify() = %d, want StageFailedId", got)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !slices.ContainsFunc(ae.Suggestions, func(s string) bool {
		return strings.Contains(s, "--resume-from setup")
	}) {
		t.Errorf("suggestions should name the failed stage: %+v", ae)
	}
	if res == nil || res.Failed() == nil {
		t.Errorf("partial result expected, got %+v", res)
	}
	testutil.AssertNoFile(t, filepath.Join(h.dataDir, "metadata", "demo.json"))

}

func TestService_ResumeSkipsCompletedStages(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "thresh-demo")
	bp := &blueprint.Blueprint{
		Name:     "tools",
		Base:     "alpine-3.19",
		Packages: []string{"git"},
		Scripts:  blueprint.Scripts{Setup: "make install"},
	}

	res, err := h.svc.Provision(context.Background(), "demo", bp, ProvisionOptions{ResumeFrom: provision.StageSetup})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if res.Stages[0].Status != provision.StatusSkipped || res.Stages[2].Status != provision.StatusSucceeded {
		t.Errorf("stages = %+v", res.Stages)
	}
	if len(h.imports()) != 0 || len(h.rec.Matching("apk add")) != 0 {
		t.Errorf("completed stages ran again: %q", h.rec.CommandLines())
	}
	if len(h.rec.Matching("make install")) != 1 {
		t.Errorf("setup script did not run: %q", h.rec.CommandLines())
	}
}

func TestService_ResumeRequiresEnvironment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.svc.Provision(context.Background(), "demo", &blueprint.Blueprint{Name: "b", Base: "alpine-3.19"},
		ProvisionOptions{ResumeFrom: provision.StagePackages})
	var nf *issue.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != issue.KindEnvironment {
		t.Fatalf("Provision() error = %v, want environment NotFoundError", err)
	}
	if len(h.imports()) != 0 {
		t.Error("nothing should be imported")
	}
}

func TestService_ConcurrentProvisionSameName(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	bp := &blueprint.Blueprint{Name: "b", Base: "alpine-3.19"}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.svc.Provision(context.Background(), "demo", bp, ProvisionOptions{})
		}()
	}
	wg.Wait()

	var ok, exists int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, issue.ErrAlreadyExists):
			exists++
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 || exists != 3 {
		t.Errorf("got %d successes and %d collisions, want 1 and 3", ok, exists)
	}
	if got := h.imports(); len(got) != 1 {
		t.Errorf("imports = %q, want exactly one", got)
	}
	if got := h.downloader.calls.Load(); got != 1 {
		t.Errorf("downloads = %d, want 1", got)
	}
}

func TestService_Destroy(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.svc.Provision(ctx, "demo", &blueprint.Blueprint{Name: "b", Base: "alpine-3.19"}, ProvisionOptions{}); err != nil {
		t.Fatal(err)
	}
	metaPath := filepath.Join(h.dataDir, "metadata", "demo.json")
	if _, err := os.Stat(metaPath); err != nil {
		t.Fatalf("metadata missing: %v", err)
	}

	if err := h.svc.Destroy(ctx, "demo"); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if got := h.rec.Matching("--unregister thresh-demo"); len(got) != 1 {
		t.Errorf("unregister commands = %q", got)
	}
	testutil.AssertNoFile(t, metaPath)

	err := h.svc.Destroy(ctx, "demo")
	if got := issue.Classify(err); got != issue.EnvironmentNotFoundId {
		t.Errorf("second Destroy() = %v, want EnvironmentNotFound", err)
	}
}

func TestService_DestroyListsAlternatives(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "thresh-web", "thresh-api")
	err := h.svc.Destroy(context.Background(), "db")
	var nf *issue.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Destroy() error = %v", err)
	}
	if !slices.Equal(nf.Valid, []string{"web", "api"}) {
		t.Errorf("Valid = %v", nf.Valid)
	}
	if len(h.rec.Matching("--unregister")) != 0 {
		t.Error("nothing should be removed")
	}
}

func TestService_GetBlueprint(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	bp, err := h.svc.GetBlueprint("python-dev")
	if err != nil || bp.Base != "ubuntu-22.04" {
		t.Fatalf("GetBlueprint(python-dev) = %+v, %v", bp, err)
	}

	if _, err := h.svc.GetBlueprint("nope"); issue.Classify(err) != issue.BlueprintNotFoundId {
		t.Errorf("GetBlueprint(nope) error = %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	testutil.MustWriteFile(t, bad, []byte(`{"name": "bad"}`))
	if _, err := h.svc.GetBlueprint(bad); issue.Classify(err) != issue.BlueprintInvalidId {
		t.Errorf("GetBlueprint(bad.json) error = %v", err)
	}

	names := make([]string, 0)
	for _, e := range h.svc.ListBlueprints() {
		names = append(names, e.Name)
	}
	for _, want := range []string{"alpine-minimal", "go-dev", "node-dev", "python-dev"} {
		if !slices.Contains(names, want) {
			t.Errorf("ListBlueprints() missing %s: %v", want, names)
		}
	}
}

func TestService_CheckRequirements(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.rec.OnPrefix("wsl --version", procexectest.Ok("WSL version: 2.0.9.0", "Kernel version: 5.15.133.1-1"))

	req := h.svc.CheckRequirements(context.Background())
	if !req.RuntimeAvailable || req.RuntimeName != "wsl" || req.Platform != "windows" {
		t.Errorf("CheckRequirements() = %+v", req)
	}
	if req.RuntimeVersion != "2.0.9.0" || req.Details != "Kernel 5.15.133.1-1" {
		t.Errorf("version fields = %q, %q", req.RuntimeVersion, req.Details)
	}
}

func TestService_Distributions(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if _, err := h.svc.Provision(context.Background(), "demo", &blueprint.Blueprint{Name: "b", Base: "alpine-3.19"}, ProvisionOptions{}); err != nil {
		t.Fatal(err)
	}

	var sawCached, sawStore bool
	for _, d := range h.svc.Distributions() {
		switch d.Key {
		case "alpine-3.19":
			sawCached = d.Cached
		case "oracle-9":
			sawStore = !d.Cached
		}
	}
	if !sawCached || !sawStore {
		t.Errorf("cache flags wrong: alpine cached=%t, oracle uncached=%t", sawCached, sawStore)
	}
}

func TestNew_InvalidRuntime(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Paths: config.Paths{DataDir: t.TempDir()}}
	if _, err := New(cfg, WithRuntime("podman")); !errors.Is(err, config.ErrInvalidRuntime) {
		t.Errorf("New() error = %v, want ErrInvalidRuntime", err)
	}
}

func TestService_StartStop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "thresh-web")
	ctx := context.Background()

	if err := h.svc.Stop(ctx, "web"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := h.svc.Start(ctx, "web"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(h.rec.Matching("wsl --terminate thresh-web")) != 1 {
		t.Errorf("terminate missing from %q", h.rec.CommandLines())
	}
	if len(h.rec.Matching("wsl -d thresh-web echo started")) != 1 {
		t.Errorf("start missing from %q", h.rec.CommandLines())
	}

	err := h.svc.Stop(ctx, "gone")
	if !errors.Is(err, issue.ErrNotFound) {
		t.Errorf("Stop(gone) error = %v, want ErrNotFound", err)
	}
}
