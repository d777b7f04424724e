// SPDX-License-Identifier: MPL-2.0

package distro

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/issue"
)

func TestRegistry_ResolveIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	r := New()
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"ubuntu-22.04", "ubuntu", true},
		{"Ubuntu-22.04", "ubuntu", true},
		{"  ALPINE-3.19 ", "alpine", true},
		{"kali", "kali", true},
		{"plan9", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			info, ok := r.Resolve(tt.key)
			if ok != tt.ok {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.key, ok, tt.ok)
			}
			if info.Name != tt.want {
				t.Errorf("Resolve(%q).Name = %q, want %q", tt.key, info.Name, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"Debian-12", " alpine-EDGE ", "kali"} {
		once := Normalize(key)
		if Normalize(once) != once {
			t.Errorf("Normalize(Normalize(%q)) != Normalize(%q)", key, key)
		}
	}
}

func TestRegistry_BuiltinsAreValid(t *testing.T) {
	t.Parallel()

	r := New()
	for _, key := range r.Keys() {
		info, _ := r.Resolve(key)
		if err := info.Validate(key); err != nil {
			t.Errorf("builtin %q invalid: %v", key, err)
		}
		if key != Normalize(key) {
			t.Errorf("builtin key %q is not normalized", key)
		}
	}
	if !slices.IsSorted(r.Keys()) {
		t.Error("Keys() should be sorted")
	}
}

func TestRegistry_CacheFileName(t *testing.T) {
	t.Parallel()

	r := New()
	tests := []struct {
		key  string
		want string
	}{
		{"debian-12", "debian-12.tar.xz"},
		{"ubuntu-22.04", "ubuntu-22.04.tar.gz"},
		{"Alpine-3.19", "alpine-3.19.tar.gz"},
		{"kali", "kali.tar.gz"},
	}

	for _, tt := range tests {
		if got := r.CacheFileName(tt.key); got != tt.want {
			t.Errorf("CacheFileName(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestRegistry_CustomOverlay(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.CustomDistributions = map[string]config.CustomDistribution{
		"MyDistro-1.0": {
			Name:           "mydistro",
			Version:        "1.0",
			RootfsURL:      "https://example.com/mydistro.tar.xz",
			PackageManager: "pacman",
		},
		"ubuntu-22.04": {
			Name:           "ubuntu",
			Version:        "22.04",
			RootfsURL:      "https://mirror.example.com/jammy.tar.gz",
			PackageManager: "apt",
		},
		"broken": {Name: "broken"},
	}

	r := New(WithConfig(cfg))

	info, ok := r.Resolve("mydistro-1.0")
	if !ok {
		t.Fatal("custom distribution should resolve by normalized key")
	}
	if !info.Custom || info.Source != SourceVendor || info.PackageManager != PackageManagerPacman {
		t.Errorf("unexpected custom entry %+v", info)
	}
	if got := r.CacheFileName("MYDISTRO-1.0"); got != "mydistro-1.0.tar.xz" {
		t.Errorf("CacheFileName = %q", got)
	}

	shadowed, _ := r.Resolve("ubuntu-22.04")
	if shadowed.RootfsURL != "https://mirror.example.com/jammy.tar.gz" {
		t.Errorf("custom entry should shadow the builtin, got %q", shadowed.RootfsURL)
	}

	if r.Has("broken") {
		t.Error("custom entry without a rootfs URL should be skipped")
	}
}

func TestRegistry_NotFoundListsKeys(t *testing.T) {
	t.Parallel()

	r := New()
	err := r.NotFound("plan9")
	if !errors.Is(err, issue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, key := range []string{"ubuntu-22.04", "alpine-3.19", "debian-12"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q should list %q", err.Error(), key)
		}
	}
	if issue.Classify(err) != issue.UnsupportedDistributionId {
		t.Error("NotFound should classify as an unsupported distribution")
	}
}

func TestParsePackageManager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want PackageManager
	}{
		{"apt", PackageManagerApt},
		{"apt-get", PackageManagerApt},
		{"APK", PackageManagerApk},
		{"dnf", PackageManagerDnf},
		{"yum", PackageManagerYum},
		{"pacman", PackageManagerPacman},
		{" zypper ", PackageManagerZypper},
		{"portage", PackageManagerApt},
		{"", PackageManagerApt},
	}

	for _, tt := range tests {
		if got := ParsePackageManager(tt.in); got != tt.want {
			t.Errorf("ParsePackageManager(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPackageManager_Commands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pm      PackageManager
		update  string
		install string
	}{
		{PackageManagerApt, "apt-get update -qq", "apt-get install -y -qq"},
		{PackageManagerApk, "apk update -q", "apk add --no-cache"},
		{PackageManagerDnf, "dnf check-update -q || true", "dnf install -y -q"},
		{PackageManagerYum, "yum check-update -q || true", "yum install -y -q"},
		{PackageManagerPacman, "pacman -Sy --noconfirm", "pacman -S --noconfirm"},
		{PackageManagerZypper, "zypper refresh -q", "zypper install -y"},
	}
	for _, tt := range tests {
		got := tt.pm.Commands()
		if got.Update != tt.update || got.Install != tt.install {
			t.Errorf("%s commands = %+v, want update %q install %q", tt.pm, got, tt.update, tt.install)
		}
	}
	if len(DetectionOrder) != len(tests) {
		t.Errorf("DetectionOrder has %d managers, want %d", len(DetectionOrder), len(tests))
	}
	if PackageManager("bogus").Commands() != PackageManagerApt.Commands() {
		t.Error("unknown package manager should fall back to apt")
	}
}

func TestCustomKey(t *testing.T) {
	t.Parallel()

	if got := CustomKey("MyDistro", "1.0"); got != "mydistro-1.0" {
		t.Errorf("CustomKey = %q", got)
	}
	if got := CustomKey("mine", ""); got != "mine-latest" {
		t.Errorf("CustomKey without version = %q", got)
	}
}
