// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestLeases_SerializesSameName(t *testing.T) {
	t.Parallel()

	leases := NewLeases(t.TempDir(), nil)
	release, err := leases.Acquire(context.Background(), "demo")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	acquired := make(chan func())
	go func() {
		r, err := leases.Acquire(context.Background(), "demo")
		if err != nil {
			t.Errorf("second Acquire() error = %v", err)
			close(acquired)
			return
		}
		acquired <- r
	}()

	select {
	case <-acquired:
		t.Fatal("second lease granted while the first is held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	release()

	select {
	case r := <-acquired:
		if r != nil {
			r()
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second lease not granted after release")
	}
}

func TestLeases_DifferentNamesIndependent(t *testing.T) {
	t.Parallel()

	leases := NewLeases("", nil)
	a, err := leases.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	defer a()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b, err := leases.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("Acquire(b) error = %v", err)
	}
	b()
}

func TestLeases_ContextCanceled(t *testing.T) {
	t.Parallel()

	leases := NewLeases("", nil)
	release, err := leases.Acquire(context.Background(), "demo")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := leases.Acquire(ctx, "demo"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want DeadlineExceeded", err)
	}
}

func TestLeases_LockPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	leases := NewLeases(dir, nil)
	if got, want := leases.LockPath("demo"), filepath.Join(dir, "thresh-demo.lock"); got != want {
		t.Errorf("LockPath() = %q, want %q", got, want)
	}
}
