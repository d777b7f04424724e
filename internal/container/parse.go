// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bufio"
	"encoding/json"
	"strings"
	"unicode"
)

type (
	// WSLListEntry is one row of `wsl --list --verbose`.
	WSLListEntry struct {
		Default bool
		Name    string
		State   string
		Version string
	}

	// ContainerEntry is one container reported by nerdctl, docker or ctr.
	ContainerEntry struct {
		Name  string
		ID    string
		Image string
		State string
	}

	// containerJSON is the subset of `ps --format json` fields thresh reads.
	containerJSON struct {
		ID     string          `json:"ID"`
		Names  json.RawMessage `json:"Names"`
		Image  string          `json:"Image"`
		State  string          `json:"State"`
		Status string          `json:"Status"`
	}

	// versionJSON is the shape of `nerdctl|docker version --format json`.
	versionJSON struct {
		Client struct {
			Version string `json:"Version"`
		} `json:"Client"`
		Server *struct {
			Version string `json:"Version"`
		} `json:"Server"`
	}
)

// CleanLine removes control characters and byte order marks. wsl.exe emits
// UTF-16 when piped, which decodes with embedded NULs.
func CleanLine(line string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '\ufeff' {
			return -1
		}
		return r
	}, line))
}

// ParseWSLListLine parses one line of `wsl --list --verbose`. Blank,
// header and separator lines, and lines without a state, are unparseable.
func ParseWSLListLine(line string) (WSLListEntry, bool) {
	clean := CleanLine(line)
	if clean == "" || strings.Contains(clean, "----") {
		return WSLListEntry{}, false
	}

	fields := strings.Fields(clean)
	var entry WSLListEntry
	if fields[0] == "*" {
		entry.Default = true
		fields = fields[1:]
	}
	if len(fields) < 2 || strings.EqualFold(fields[0], "NAME") {
		return WSLListEntry{}, false
	}

	entry.Name = fields[0]
	entry.State = fields[1]
	entry.Version = "Unknown"
	if len(fields) > 2 {
		entry.Version = fields[2]
	}
	return entry, true
}

// ParseContainerJSONLine parses one line of `ps -a --format json`. Names
// may be a string or a list; State falls back to the leading word of Status
// for tools that omit it.
func ParseContainerJSONLine(line string) (ContainerEntry, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != '{' {
		return ContainerEntry{}, false
	}

	var raw containerJSON
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return ContainerEntry{}, false
	}

	name := decodeNames(raw.Names)
	if name == "" {
		return ContainerEntry{}, false
	}

	state := raw.State
	if state == "" {
		state = stateFromStatus(raw.Status)
	}
	return ContainerEntry{Name: name, ID: raw.ID, Image: raw.Image, State: strings.ToLower(state)}, true
}

// ParseCtrListLine parses one row of `ctr containers list`. The header row
// and rows with fewer than two columns are unparseable.
func ParseCtrListLine(line string) (ContainerEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || strings.EqualFold(fields[0], "CONTAINER") {
		return ContainerEntry{}, false
	}
	return ContainerEntry{Name: fields[0], ID: fields[0], Image: fields[1]}, true
}

// ContainerStatus maps a nerdctl/docker container state to a Status.
func ContainerStatus(state string) Status {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "running", "up":
		return StatusRunning
	case "created", "exited", "paused", "stopped":
		return StatusStopped
	default:
		return StatusUnknown
	}
}

// ParseVersionField returns the value after the first occurrence of prefix
// (case-insensitive) in output, e.g. "WSL version:" or "Version:".
func ParseVersionField(output, prefix string) (string, bool) {
	lowerPrefix := strings.ToLower(prefix)
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		clean := CleanLine(sc.Text())
		idx := strings.Index(strings.ToLower(clean), lowerPrefix)
		if idx < 0 {
			continue
		}
		if v := strings.TrimSpace(clean[idx+len(prefix):]); v != "" {
			return v, true
		}
	}
	return "", false
}

// ParseVersionJSON reads client and server versions from
// `version --format json`. ok is false when the server version is missing.
func ParseVersionJSON(output string) (client, server string, ok bool) {
	var v versionJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &v); err != nil {
		return "", "", false
	}
	if v.Server == nil || v.Server.Version == "" {
		return v.Client.Version, "", false
	}
	return v.Client.Version, v.Server.Version, true
}

// CountLines counts non-blank lines.
func CountLines(lines []string) int {
	n := 0
	for _, l := range lines {
		if CleanLine(l) != "" {
			n++
		}
	}
	return n
}

func decodeNames(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimPrefix(strings.Split(single, ",")[0], "/")
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return strings.TrimPrefix(list[0], "/")
	}
	return ""
}

func stateFromStatus(status string) string {
	fields := strings.Fields(status)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
