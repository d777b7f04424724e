// SPDX-License-Identifier: MPL-2.0

package rootfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/thresh/thresh/internal/distro"
	"github.com/thresh/thresh/internal/filelock"
	"github.com/thresh/thresh/internal/issue"
	"github.com/thresh/thresh/internal/logging"
)

const (
	lockSuffix = ".lock"
	partMarker = ".part-"
)

// ErrNoRootfsURL is returned by Ensure for distributions without a download URL.
var ErrNoRootfsURL = errors.New("distribution has no rootfs URL")

type (
	// Cache is the rootfs archive cache. It is safe for concurrent use.
	Cache struct {
		dir        string
		downloader Downloader
		logger     *log.Logger
		group      singleflight.Group
	}

	// Option configures a Cache.
	Option func(*Cache)

	// Entry is one cached archive.
	Entry struct {
		Key     string    `json:"key"`
		Path    string    `json:"path"`
		Size    int64     `json:"size"`
		ModTime time.Time `json:"modTime"`
	}
)

// WithDownloader replaces the HTTP downloader.
func WithDownloader(d Downloader) Option {
	return func(c *Cache) {
		c.downloader = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New creates a cache rooted at dir. The directory is created on first
// download.
func New(dir string, opts ...Option) *Cache {
	c := &Cache{dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	if c.downloader == nil {
		c.downloader = NewHTTPDownloader()
	}
	c.logger = logging.OrDiscard(c.logger)
	return c
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Path returns where the archive for key lives, cached or not.
func (c *Cache) Path(key string, info distro.Info) string {
	return filepath.Join(c.dir, distro.CacheFileName(key, info))
}

// Ensure returns the local path of the rootfs archive for key, downloading
// it on a miss. An existing file is returned as is. Concurrent callers for
// the same key share one download, which is not cancelled with any single
// caller's ctx; each caller stops waiting when its own ctx is done.
func (c *Cache) Ensure(ctx context.Context, key string, info distro.Info) (string, error) {
	path := c.Path(key, info)
	if fileExists(path) {
		c.logger.Debug("rootfs cache hit", "key", key, "path", path)
		return path, nil
	}
	if strings.TrimSpace(info.RootfsURL) == "" {
		return "", fmt.Errorf("%s: %w", key, ErrNoRootfsURL)
	}

	fillCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(path, func() (any, error) {
		return nil, c.fill(fillCtx, info.RootfsURL, path)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Shared {
			c.logger.Debug("joined in-flight rootfs download", "key", key)
		}
		if r.Err != nil {
			return "", r.Err
		}
		return path, nil
	}
}

// fill downloads url to path under the cross-process lock.
func (c *Cache) fill(ctx context.Context, url, path string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	lock, err := filelock.Acquire(ctx, path+lockSuffix)
	switch {
	case errors.Is(err, filelock.ErrUnavailable):
		c.logger.Debug("file locking unavailable, relying on in-process deduplication")
	case err != nil:
		return fmt.Errorf("lock cache entry: %w", err)
	default:
		defer func() { _ = lock.Release() }()
	}

	// Another process may have finished the download while we waited.
	if fileExists(path) {
		return nil
	}

	c.logger.Info("downloading rootfs", "url", url)
	start := time.Now()

	tmp, err := os.CreateTemp(c.dir, filepath.Base(path)+partMarker+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := c.downloader.Download(ctx, url, tmp); err != nil {
		return &issue.TransportError{URL: url, Destination: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("move download into cache: %w", err)
	}
	committed = true

	c.logger.Info("rootfs cached", "path", path, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// Entries lists cached archives sorted by key. A missing cache directory
// is an empty cache.
func (c *Cache) Entries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read cache directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		key, ok := archiveKey(de.Name())
		if !ok || !de.Type().IsRegular() {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Key:     key,
			Path:    filepath.Join(c.dir, de.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Evict removes the archive cached for key. It reports whether anything
// was removed.
func (c *Cache) Evict(key string) (bool, error) {
	key = distro.Normalize(key)
	removed := false
	for _, ext := range []string{".tar.gz", ".tar.xz"} {
		path := filepath.Join(c.dir, key+ext)
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = true
			_ = os.Remove(path + lockSuffix)
		case !errors.Is(err, fs.ErrNotExist):
			return removed, fmt.Errorf("evict %s: %w", key, err)
		}
	}
	return removed, nil
}

// Clear evicts every entry and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	entries, err := c.Entries()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		ok, err := c.Evict(e.Key)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// archiveKey returns the distribution key of a cache file name. Lock and
// partial files are not archives.
func archiveKey(name string) (string, bool) {
	if strings.Contains(name, partMarker) || strings.HasSuffix(name, lockSuffix) {
		return "", false
	}
	for _, ext := range []string{".tar.gz", ".tar.xz"} {
		if key, ok := strings.CutSuffix(name, ext); ok && key != "" {
			return key, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
