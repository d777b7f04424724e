// SPDX-License-Identifier: MPL-2.0

package blueprint

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/thresh/thresh/internal/issue"
	"github.com/thresh/thresh/internal/logging"
)

const (
	OriginBundled Origin = "bundled"
	OriginUser    Origin = "user"
)

//go:embed bundled/*.json
var bundledFS embed.FS

type (
	// Origin says where a catalog entry comes from.
	Origin string

	// Catalog serves the bundled blueprints overlaid by the files in a user
	// directory. A user file shadows a bundled blueprint of the same name.
	Catalog struct {
		userDir string
		bundled fs.FS
		logger  *log.Logger
	}

	// CatalogOption configures a Catalog.
	CatalogOption func(*Catalog)

	// Entry summarizes a catalog blueprint for listings.
	Entry struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Base        string `json:"base"`
		Origin      Origin `json:"origin"`
		Path        string `json:"path,omitempty"`
	}
)

// WithCatalogLogger sets the logger used to report unreadable user files.
func WithCatalogLogger(l *log.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = l
	}
}

// WithBundledFS replaces the embedded bundled set.
func WithBundledFS(fsys fs.FS) CatalogOption {
	return func(c *Catalog) {
		c.bundled = fsys
	}
}

// NewCatalog creates a catalog. An empty userDir serves only bundled
// blueprints.
func NewCatalog(userDir string, opts ...CatalogOption) *Catalog {
	sub, err := fs.Sub(bundledFS, "bundled")
	if err != nil {
		panic(err) // embed path is fixed at build time
	}
	c := &Catalog{userDir: userDir, bundled: sub}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger)
	return c
}

// Names returns every blueprint name, sorted and without duplicates.
func (c *Catalog) Names() []string {
	seen := make(map[string]bool)
	for name := range c.bundledFiles() {
		seen[name] = true
	}
	for name := range c.userFiles() {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get loads the blueprint called name. Unknown names return an
// *issue.NotFoundError listing the available names.
func (c *Catalog) Get(name string) (*Blueprint, error) {
	bp, _, err := c.get(name)
	return bp, err
}

// Entries summarizes every blueprint. Blueprints that fail to load are
// logged and left out.
func (c *Catalog) Entries() []Entry {
	names := c.Names()
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		bp, e, err := c.get(name)
		if err != nil {
			c.logger.Warn("skipping unreadable blueprint", "name", name, "error", err)
			continue
		}
		e.Description = bp.Description
		e.Base = bp.Base
		entries = append(entries, e)
	}
	return entries
}

// Resolve loads nameOrPath as a file when one exists there, and as a
// catalog name otherwise.
func (c *Catalog) Resolve(nameOrPath string) (*Blueprint, error) {
	if fi, err := os.Stat(nameOrPath); err == nil && fi.Mode().IsRegular() {
		return LoadFile(nameOrPath)
	}
	return c.Get(nameOrPath)
}

func (c *Catalog) get(name string) (*Blueprint, Entry, error) {
	if !validCatalogName(name) {
		return nil, Entry{}, c.notFound(name)
	}
	if p, ok := c.userFiles()[name]; ok {
		bp, err := LoadFile(p)
		return bp, Entry{Name: name, Origin: OriginUser, Path: p}, err
	}
	if file, ok := c.bundledFiles()[name]; ok {
		data, err := fs.ReadFile(c.bundled, file)
		if err != nil {
			return nil, Entry{}, fmt.Errorf("read bundled blueprint %s: %w", name, err)
		}
		bp, err := Parse(data, FormatFromPath(file), name)
		return bp, Entry{Name: name, Origin: OriginBundled}, err
	}
	return nil, Entry{}, c.notFound(name)
}

func (c *Catalog) notFound(name string) error {
	return &issue.NotFoundError{Kind: issue.KindBlueprint, Name: name, Valid: c.Names()}
}

// bundledFiles maps blueprint names to file names in the bundled set.
func (c *Catalog) bundledFiles() map[string]string {
	out := make(map[string]string)
	entries, err := fs.ReadDir(c.bundled, ".")
	if err != nil {
		return out
	}
	for _, e := range entries {
		if name, ok := blueprintName(e.Name()); ok && !e.IsDir() {
			out[name] = e.Name()
		}
	}
	return out
}

// userFiles maps blueprint names to paths in the user directory. When a
// name exists with several extensions, the first in Extensions wins.
func (c *Catalog) userFiles() map[string]string {
	out := make(map[string]string)
	if c.userDir == "" {
		return out
	}
	entries, err := os.ReadDir(c.userDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("cannot read blueprint directory", "dir", c.userDir, "error", err)
		}
		return out
	}
	rank := func(file string) int {
		ext := strings.ToLower(filepath.Ext(file))
		for i, e := range Extensions {
			if e == ext {
				return i
			}
		}
		return len(Extensions)
	}
	for _, e := range entries {
		name, ok := blueprintName(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		if prev, dup := out[name]; dup && rank(prev) <= rank(e.Name()) {
			continue
		}
		out[name] = filepath.Join(c.userDir, e.Name())
	}
	return out
}

// blueprintName strips a recognized extension from a file name.
func blueprintName(file string) (string, bool) {
	ext := path.Ext(file)
	for _, e := range Extensions {
		if strings.EqualFold(ext, e) {
			name := strings.TrimSuffix(file, ext)
			return name, name != ""
		}
	}
	return "", false
}

func validCatalogName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
