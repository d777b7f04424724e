// SPDX-License-Identifier: MPL-2.0

package procexec

import (
	"slices"
	"testing"
)

func TestLineCollector_InterleavesStreams(t *testing.T) {
	t.Parallel()

	c := newLineCollector(nil)
	stdout, stderr := c.stream(false), c.stream(true)

	_, _ = stdout.Write([]byte("one\ntw"))
	_, _ = stderr.Write([]byte("warn\r\n"))
	_, _ = stdout.Write([]byte("o\n"))
	_, _ = stderr.Write([]byte("tail"))
	c.flush()

	if want := []string{"one", "warn", "two", "tail"}; !slices.Equal(c.output, want) {
		t.Errorf("output = %q, want %q", c.output, want)
	}
	if want := []string{"warn", "tail"}; !slices.Equal(c.stderr, want) {
		t.Errorf("stderr = %q, want %q", c.stderr, want)
	}
}

func TestResult_ErrorText(t *testing.T) {
	t.Parallel()

	withStderr := Result{Output: []string{"a", "b"}, Stderr: []string{"b"}}
	if got := withStderr.ErrorText(); got != "b" {
		t.Errorf("ErrorText() = %q, want stderr only", got)
	}
	noStderr := Result{Output: []string{"a", "b"}}
	if got := noStderr.ErrorText(); got != "a\nb" {
		t.Errorf("ErrorText() = %q, want full output", got)
	}
}
