// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"

	"github.com/thresh/thresh/internal/testutil"
)

func TestRuntimeKind_IsValid(t *testing.T) {
	t.Parallel()

	for _, rt := range []RuntimeKind{RuntimeAuto, RuntimeWSL, RuntimeNerdctl, RuntimeDocker, RuntimeCtr} {
		if ok, _ := rt.IsValid(); !ok {
			t.Errorf("%q should be valid", rt)
		}
	}

	ok, errs := RuntimeKind("podman").IsValid()
	if ok || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidRuntime) {
		t.Errorf("podman should be invalid, got %v %v", ok, errs)
	}
}

func TestConfig_GetSetDelete(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if v, ok := cfg.Get("runtime"); !ok || v != "auto" {
		t.Errorf("Get(runtime) = %q, %v", v, ok)
	}
	if _, ok := cfg.Get("paths.cache_dir"); ok {
		t.Error("unset path should report false")
	}

	if err := cfg.Set("Runtime", "Docker"); err != nil {
		t.Fatalf("Set(runtime) error: %v", err)
	}
	if cfg.Runtime != RuntimeDocker {
		t.Errorf("Runtime = %q", cfg.Runtime)
	}
	if err := cfg.Set("runtime", "podman"); !errors.Is(err, ErrInvalidRuntime) {
		t.Errorf("Set(runtime, podman) error = %v", err)
	}
	if err := cfg.Set("paths.cache_dir", "/c"); err != nil || cfg.Paths.CacheDir != "/c" {
		t.Errorf("Set(paths.cache_dir) = %v, %q", err, cfg.Paths.CacheDir)
	}
	if err := cfg.Set("paths.bogus", "x"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set(paths.bogus) error = %v", err)
	}
	if err := cfg.Set("api_endpoint", "https://example.com"); err != nil {
		t.Fatalf("Set(api_endpoint) error: %v", err)
	}

	if !cfg.Delete("api_endpoint") {
		t.Error("Delete(api_endpoint) should report a change")
	}
	if cfg.Delete("api_endpoint") {
		t.Error("second Delete should report no change")
	}
	if !cfg.Delete("runtime") || cfg.Runtime != RuntimeAuto {
		t.Error("Delete(runtime) should restore the default")
	}
	if !cfg.Delete("paths.cache_dir") || cfg.Paths.CacheDir != "" {
		t.Error("Delete(paths.cache_dir) should clear the override")
	}
}

func TestConfig_List(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Settings["zeta"] = "1"
	cfg.Settings["alpha"] = "2"

	pairs := cfg.List()
	if len(pairs) == 0 {
		t.Fatal("List() returned nothing")
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i-1][0] > pairs[i][0] {
			t.Fatalf("List() not sorted: %v", pairs)
		}
	}
	found := map[string]string{}
	for _, p := range pairs {
		found[p[0]] = p[1]
	}
	if found["runtime"] != "auto" || found["alpha"] != "2" || found["ui.verbose"] != "false" {
		t.Errorf("unexpected pairs %v", pairs)
	}
}

func TestSecretEnvName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"api_key":        "THRESH_API_KEY",
		"openai.api-key": "THRESH_OPENAI_API_KEY",
		" token ":        "THRESH_TOKEN",
	}
	for in, want := range tests {
		if got := SecretEnvName(in); got != want {
			t.Errorf("SecretEnvName(%q) = %q, want %q", in, got, want)
		}
	}
}

//nolint:paralleltest // mutates process environment
func TestConfig_GetSecret(t *testing.T) {
	t.Cleanup(testutil.MustSetenv(t, "THRESH_API_KEY", "s3cr3t"))
	t.Cleanup(testutil.MustUnsetenv(t, "THRESH_MISSING"))

	cfg := DefaultConfig()
	if v, ok := cfg.GetSecret("api_key"); !ok || v != "s3cr3t" {
		t.Errorf("GetSecret(api_key) = %q, %v", v, ok)
	}
	if _, ok := cfg.GetSecret("missing"); ok {
		t.Error("GetSecret(missing) should report false")
	}
}
