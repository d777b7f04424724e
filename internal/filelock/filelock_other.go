// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package filelock

import (
	"context"
	"errors"
)

// ErrUnavailable is returned where flock does not exist. Callers fall back
// to in-process locking.
var ErrUnavailable = errors.New("flock not available on this platform")

// Lock is the stub used on platforms without flock.
type Lock struct{}

// Acquire always fails with ErrUnavailable.
func Acquire(context.Context, string) (*Lock, error) {
	return nil, ErrUnavailable
}

// Path returns an empty string.
func (l *Lock) Path() string { return "" }

// Release is a no-op.
func (l *Lock) Release() error { return nil }
