// SPDX-License-Identifier: MPL-2.0

// Package platform holds small cross-platform helpers.
package platform

import "strings"

const (
	// Windows is runtime.GOOS on Windows hosts.
	Windows = "windows"
	// Darwin is runtime.GOOS on macOS hosts.
	Darwin = "darwin"
)

// windowsReservedNames cannot be used as file or directory names on Windows,
// whatever the extension.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsWindowsReservedName reports whether name (ignoring any extension) is
// reserved on Windows. Environment names become install directory names,
// so they are checked on every host.
func IsWindowsReservedName(name string) bool {
	upper := strings.ToUpper(name)
	if idx := strings.Index(upper, "."); idx != -1 {
		upper = upper[:idx]
	}
	return windowsReservedNames[upper]
}
