// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/thresh/thresh/internal/distro"
)

const (
	// ScriptPreamble is prepended to setup and post-install scripts.
	ScriptPreamble = "#!/bin/bash\nset -e\n"

	// ProfilePath receives the blueprint's environment variables.
	ProfilePath = "/etc/profile"

	noPackageManagerMessage = "ERROR: No supported package manager found"
)

// PackageInstallCommand builds one shell command that looks for each package
// manager in distro.DetectionOrder and runs the first one found. Package names
// are shell-quoted.
func PackageInstallCommand(packages []string) (string, error) {
	quoted := make([]string, len(packages))
	for i, p := range packages {
		q, err := syntax.Quote(p, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("package %q: %w", p, err)
		}
		quoted[i] = q
	}
	list := strings.Join(quoted, " ")

	var sb strings.Builder
	for i, pm := range distro.DetectionOrder {
		cmds := pm.Commands()
		keyword := "elif"
		if i == 0 {
			keyword = "if"
		}
		fmt.Fprintf(&sb, "%s command -v %s >/dev/null 2>&1; then\n  ", keyword, cmds.Binary)
		if cmds.Update != "" {
			sb.WriteString(cmds.Update + " && ")
		}
		sb.WriteString(cmds.Install + " " + list + "\n")
	}
	fmt.Fprintf(&sb, "else\n  echo '%s' >&2; exit 1\nfi", noPackageManagerMessage)
	return sb.String(), nil
}

// ScriptCommand prepends ScriptPreamble to a blueprint script.
func ScriptCommand(script string) string {
	return ScriptPreamble + script
}

// ProfileBlock renders environment variables as `export KEY="VALUE"` lines,
// sorted by key. Keys must be valid shell names.
func ProfileBlock(env map[string]string, keys []string) ([]string, error) {
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		if !syntax.ValidName(k) {
			return nil, fmt.Errorf("environment key %q is not a valid shell variable name", k)
		}
		lines = append(lines, fmt.Sprintf("export %s=\"%s\"", k, EscapeDoubleQuoted(env[k])))
	}
	return lines, nil
}

// ProfileCommand appends the profile block to ProfilePath with printf, one
// quoted argument per line.
func ProfileCommand(env map[string]string, keys []string) (string, error) {
	lines, err := ProfileBlock(env, keys)
	if err != nil {
		return "", err
	}
	args := make([]string, len(lines))
	for i, l := range lines {
		q, err := syntax.Quote(l, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("environment value for %s: %w", keys[i], err)
		}
		args[i] = q
	}
	return fmt.Sprintf("printf '%%s\\n' %s >> %s", strings.Join(args, " "), ProfilePath), nil
}

// EscapeDoubleQuoted escapes the characters that keep their meaning inside
// a double-quoted shell string.
func EscapeDoubleQuoted(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '"', '$', '`':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
