// SPDX-License-Identifier: MPL-2.0

//go:build integration

package engine

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"

	"github.com/thresh/thresh/internal/blueprint"
	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/procexec"
	"github.com/thresh/thresh/internal/testutil"
)

// checkTestcontainersAvailable reports whether a Docker provider can be
// reached. Provider lookup panics on some hosts without a daemon.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestService_DockerEndToEnd provisions from a rootfs exported out of a
// testcontainers-managed alpine container, then destroys it.
func TestService_DockerEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	x := procexec.New()
	if !x.IsCommandAvailable(ctx, "docker") {
		t.Skip("skipping: docker not found")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping: testcontainers provider not available")
	}

	sem := testutil.ContainerSemaphore()
	sem <- struct{}{}
	defer func() { <-sem }()

	src, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "alpine:3.19",
			Cmd:   []string{"sleep", "300"},
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, src)
	if err != nil {
		t.Fatalf("start source container: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "rootfs.tar")
	res := x.Execute(ctx, procexec.Command{
		Args:    []string{"docker", "export", "-o", archive, src.GetContainerID()},
		Timeout: 2 * time.Minute,
	})
	if !res.Success {
		t.Fatalf("docker export: %v", res.Err)
	}

	cfg := config.DefaultConfig()
	cfg.Paths.DataDir = t.TempDir()
	cfg.CustomDistributions["itest-1"] = config.CustomDistribution{
		Name:           "itest",
		Version:        "1",
		RootfsURL:      "file://" + archive,
		PackageManager: "apk",
	}
	svc, err := New(cfg, WithRuntime(config.RuntimeDocker), WithExecutor(x))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	name := "it-" + uuid.NewString()[:8]
	t.Cleanup(func() { _ = svc.Destroy(context.Background(), name) })

	bp := &blueprint.Blueprint{
		Name:        "itest",
		Base:        "itest-1",
		Scripts:     blueprint.Scripts{Setup: "echo ready > /tmp/ready"},
		Environment: map[string]string{"GREETING": "hello"},
	}
	result, err := svc.Provision(ctx, name, bp, ProvisionOptions{})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("Provision() result = %+v", result)
	}

	out := svc.Backend().ExecuteCommand(ctx, name, "cat /tmp/ready; grep GREETING /etc/profile")
	if !out.Success {
		t.Fatalf("exec failed: %v", out.Err)
	}
	joined := strings.Join(out.Output, "\n")
	if !strings.Contains(joined, "ready") || !strings.Contains(joined, `export GREETING="hello"`) {
		t.Errorf("unexpected environment state:\n%s", joined)
	}

	envs, err := svc.ListEnvironments(ctx, false)
	if err != nil {
		t.Fatalf("ListEnvironments() error = %v", err)
	}
	found := false
	for _, e := range envs {
		if e.Name == name {
			found = e.BlueprintName == "itest"
		}
	}
	if !found {
		t.Errorf("environment %s missing from %+v", name, envs)
	}

	if err := svc.Destroy(ctx, name); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if svc.Backend().EnvironmentExists(ctx, name) {
		t.Error("environment should be gone after Destroy")
	}
}
