// SPDX-License-Identifier: MPL-2.0

// Package rootfs keeps downloaded root filesystem archives in a per-user
// cache directory, one file per distribution key.
//
// A cache entry only appears once its download has completed: archives are
// streamed into a temporary file in the cache directory, synced and renamed
// into place. Concurrent Ensure calls for the same key share one download
// inside the process and serialize on a lock file across processes.
package rootfs
