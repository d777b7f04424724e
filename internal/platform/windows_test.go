// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestIsWindowsReservedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"con", true},
		{"NUL", true},
		{"com1.tar.gz", true},
		{"lpt9", true},
		{"demo", false},
		{"console", false},
		{"com10", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsWindowsReservedName(tt.name); got != tt.want {
			t.Errorf("IsWindowsReservedName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
