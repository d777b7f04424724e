// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_VerboseEnablesDebug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			l := New(&buf, Options{Prefix: "thresh", Verbose: tt.verbose})
			l.Debug("probing runtime", "tool", "nerdctl")
			l.Info("ready")

			out := buf.String()
			if got := strings.Contains(out, "probing runtime"); got != tt.wantDebug {
				t.Errorf("debug line present = %v, want %v (output %q)", got, tt.wantDebug, out)
			}
			if !strings.Contains(out, "ready") {
				t.Errorf("info line missing from %q", out)
			}
		})
	}
}

func TestOrDiscard(t *testing.T) {
	t.Parallel()

	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l := New(&bytes.Buffer{}, Options{})
	if OrDiscard(l) != l {
		t.Error("OrDiscard should return the given logger")
	}
}
