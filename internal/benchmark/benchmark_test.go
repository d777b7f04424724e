// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"fmt"
	"testing"

	"github.com/thresh/thresh/internal/blueprint"
	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/container"
	"github.com/thresh/thresh/internal/distro"
	"github.com/thresh/thresh/internal/provision"
)

const (
	sampleJSON = `{
  "name": "python-dev",
  "description": "Python 3 with common tooling",
  "base": "ubuntu-22.04",
  "packages": ["python3", "python3-pip", "python3-venv", "git", "build-essential"],
  "scripts": {
    "setup": "pip3 install --upgrade pip\nmkdir -p /opt/work",
    "postInstall": "python3 --version"
  },
  "environment": {"PYTHONUNBUFFERED": "1", "WORKDIR": "/opt/work"}
}`

	sampleYAML = `name: python-dev
description: Python 3 with common tooling
base: ubuntu-22.04
packages: [python3, python3-pip, python3-venv, git, build-essential]
scripts:
  setup: |
    pip3 install --upgrade pip
    mkdir -p /opt/work
  postInstall: python3 --version
environment:
  PYTHONUNBUFFERED: "1"
  WORKDIR: /opt/work
`

	sampleTOML = `name = "python-dev"
description = "Python 3 with common tooling"
base = "ubuntu-22.04"
packages = ["python3", "python3-pip", "python3-venv", "git", "build-essential"]

[scripts]
setup = """
pip3 install --upgrade pip
mkdir -p /opt/work
"""
postInstall = "python3 --version"

[environment]
PYTHONUNBUFFERED = "1"
WORKDIR = "/opt/work"
`
)

func BenchmarkBlueprintParse(b *testing.B) {
	for _, tc := range []struct {
		format blueprint.Format
		data   string
	}{
		{blueprint.FormatJSON, sampleJSON},
		{blueprint.FormatYAML, sampleYAML},
		{blueprint.FormatTOML, sampleTOML},
	} {
		b.Run(tc.format.String(), func(b *testing.B) {
			data := []byte(tc.data)
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				if _, err := blueprint.Parse(data, tc.format, "bench"); err != nil {
					b.Fatalf("Parse failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkBlueprintValidate(b *testing.B) {
	bp, err := blueprint.Parse([]byte(sampleJSON), blueprint.FormatJSON, "bench")
	if err != nil {
		b.Fatalf("Parse failed: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		if err := bp.Validate(); err != nil {
			b.Fatalf("Validate failed: %v", err)
		}
	}
}

func BenchmarkWSLListParse(b *testing.B) {
	lines := []string{"  NAME                   STATE           VERSION", "* Ubuntu                 Running         2"}
	for i := range 50 {
		lines = append(lines, fmt.Sprintf("  thresh-env%02d          Stopped         2", i))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		n := 0
		for _, l := range lines {
			if _, ok := container.ParseWSLListLine(l); ok {
				n++
			}
		}
		if n != len(lines)-1 {
			b.Fatalf("parsed %d lines, want %d", n, len(lines)-1)
		}
	}
}

func BenchmarkContainerJSONParse(b *testing.B) {
	line := `{"ID":"3f2a","Names":"thresh-web","Image":"thresh/web:latest","State":"running","Status":"Up 2 hours"}`

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, ok := container.ParseContainerJSONLine(line); !ok {
			b.Fatal("ParseContainerJSONLine rejected a valid line")
		}
	}
}

func BenchmarkProvisionCommands(b *testing.B) {
	packages := []string{"python3", "python3-pip", "python3-venv", "git", "build-essential"}
	env := map[string]string{"PYTHONUNBUFFERED": "1", "WORKDIR": "/opt/work", "GREETING": `say "hi" to $USER`}
	keys := []string{"GREETING", "PYTHONUNBUFFERED", "WORKDIR"}

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := provision.PackageInstallCommand(packages); err != nil {
			b.Fatalf("PackageInstallCommand failed: %v", err)
		}
		if _, err := provision.ProfileCommand(env, keys); err != nil {
			b.Fatalf("ProfileCommand failed: %v", err)
		}
	}
}

func BenchmarkRegistry(b *testing.B) {
	cfg := config.DefaultConfig()
	for i := range 20 {
		key := fmt.Sprintf("custom-%d", i)
		cfg.CustomDistributions[key] = config.CustomDistribution{
			Name:      "custom",
			Version:   fmt.Sprint(i),
			RootfsURL: "https://example.com/" + key + ".tar.gz",
		}
	}

	b.Run("build", func(b *testing.B) {
		b.ReportAllocs()
		for b.Loop() {
			distro.New(distro.WithConfig(cfg))
		}
	})

	b.Run("resolve", func(b *testing.B) {
		reg := distro.New(distro.WithConfig(cfg))
		b.ReportAllocs()
		b.ResetTimer()
		for b.Loop() {
			if _, ok := reg.Resolve("Ubuntu-22.04"); !ok {
				b.Fatal("Resolve failed")
			}
		}
	})
}
