// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/thresh/thresh/internal/container"
	"github.com/thresh/thresh/internal/filelock"
	"github.com/thresh/thresh/internal/logging"
)

// Leases hands out exclusive per-name leases. Inside the process a lease is
// a one-slot channel per name; when a lock directory is set, a lock file
// named after the environment extends the exclusion to other processes.
type Leases struct {
	lockDir string
	logger  *log.Logger

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLeases creates a lease table. An empty lockDir keeps leases in-process.
func NewLeases(lockDir string, logger *log.Logger) *Leases {
	return &Leases{
		lockDir: lockDir,
		logger:  logging.OrDiscard(logger),
		slots:   make(map[string]chan struct{}),
	}
}

// Acquire blocks until the lease for name is free or ctx is done. The
// returned release function is idempotent.
func (l *Leases) Acquire(ctx context.Context, name string) (release func(), err error) {
	slot := l.slot(name)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for lease on %s: %w", name, ctx.Err())
	}

	var lock *filelock.Lock
	if l.lockDir != "" {
		lock, err = filelock.Acquire(ctx, l.LockPath(name))
		switch {
		case errors.Is(err, filelock.ErrUnavailable):
			l.logger.Debug("cross-process locking unavailable", "name", name)
		case err != nil:
			<-slot
			return nil, fmt.Errorf("lock %s: %w", name, err)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if lock != nil {
				if err := lock.Release(); err != nil {
					l.logger.Warn("releasing lock file failed", "path", lock.Path(), "error", err)
				}
			}
			<-slot
		})
	}, nil
}

// LockPath returns the lock file used for name.
func (l *Leases) LockPath(name string) string {
	return filepath.Join(l.lockDir, container.BackendIdentifier(name)+".lock")
}

func (l *Leases) slot(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[name]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[name] = s
	}
	return s
}
