// SPDX-License-Identifier: MPL-2.0

// Package filelock provides cross-process exclusive locks backed by flock(2).
//
// Locks are advisory and tied to an open file descriptor, so the kernel
// releases them when the holder exits, including on a crash. The zero-byte
// lock files are left behind and are harmless. On platforms without flock
// Acquire returns ErrUnavailable and callers fall back to in-process locking.
package filelock
