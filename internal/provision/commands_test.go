// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"slices"
	"strings"
	"testing"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

func TestEscapeDoubleQuoted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{`a"b`, `a\"b`},
		{"$HOME", `\$HOME`},
		{"`id`", "\\`id\\`"},
		{`C:\tools`, `C:\\tools`},
		{"it's", "it's"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := EscapeDoubleQuoted(tt.in); got != tt.want {
				t.Errorf("EscapeDoubleQuoted(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPackageInstallCommand(t *testing.T) {
	t.Parallel()

	cmd, err := PackageInstallCommand([]string{"git", "libfoo; rm -rf /", "python3-pip"})
	if err != nil {
		t.Fatalf("PackageInstallCommand() error = %v", err)
	}

	for _, want := range []string{
		"if command -v apt-get >/dev/null 2>&1; then\n  apt-get update -qq && apt-get install -y -qq git 'libfoo; rm -rf /' python3-pip\n",
		"elif command -v apk >/dev/null 2>&1; then\n  apk update -q && apk add --no-cache git",
		"elif command -v dnf >/dev/null 2>&1; then\n  dnf check-update -q || true && dnf install -y -q git",
		"elif command -v zypper >/dev/null 2>&1; then",
		"else\n  echo 'ERROR: No supported package manager found' >&2; exit 1\nfi",
	} {
		if !strings.Contains(cmd, want) {
			t.Errorf("command missing %q:\n%s", want, cmd)
		}
	}
	if strings.Index(cmd, "apt-get") > strings.Index(cmd, "apk") {
		t.Error("apt-get must be checked before apk")
	}
	if _, err := syntax.NewParser().Parse(strings.NewReader(cmd), ""); err != nil {
		t.Errorf("generated command does not parse: %v", err)
	}
}

func TestProfileCommand(t *testing.T) {
	t.Parallel()

	env := map[string]string{"GREETING": "it's $HOME", "EMPTY": ""}
	cmd, err := ProfileCommand(env, []string{"EMPTY", "GREETING"})
	if err != nil {
		t.Fatalf("ProfileCommand() error = %v", err)
	}
	if !strings.HasPrefix(cmd, `printf '%s\n' `) || !strings.HasSuffix(cmd, " >> /etc/profile") {
		t.Errorf("ProfileCommand() = %q", cmd)
	}

	// The shell must see each export line as one literal printf argument.
	file, err := syntax.NewParser().Parse(strings.NewReader(cmd), "")
	if err != nil {
		t.Fatalf("generated command does not parse: %v", err)
	}
	call, ok := file.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok {
		t.Fatalf("unexpected command node %T", file.Stmts[0].Cmd)
	}
	var args []string
	for _, w := range call.Args[2:] {
		lit, err := expand.Literal(nil, w)
		if err != nil {
			t.Fatalf("expand %v: %v", w, err)
		}
		args = append(args, lit)
	}
	want := []string{`export EMPTY=""`, `export GREETING="it's \$HOME"`}
	if !slices.Equal(args, want) {
		t.Errorf("printf arguments = %q, want %q", args, want)
	}

	if _, err := ProfileCommand(map[string]string{"BAD-KEY": "x"}, []string{"BAD-KEY"}); err == nil {
		t.Error("invalid variable names should be rejected")
	}
}

func TestScriptCommand(t *testing.T) {
	t.Parallel()

	if got := ScriptCommand("echo hi"); got != "#!/bin/bash\nset -e\necho hi" {
		t.Errorf("ScriptCommand() = %q", got)
	}
}
