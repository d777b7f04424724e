// SPDX-License-Identifier: MPL-2.0

package distro

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/issue"
	"github.com/thresh/thresh/internal/logging"
)

type (
	// Registry maps normalized keys to distributions. It is populated at
	// construction and read-only afterwards, so it is safe for concurrent use.
	Registry struct {
		entries map[string]Info
	}

	// Option configures a Registry under construction.
	Option func(*registryBuilder)

	registryBuilder struct {
		entries map[string]Info
		custom  map[string]config.CustomDistribution
		logger  *log.Logger
	}
)

// WithConfig overlays the custom distributions registered in cfg.
func WithConfig(cfg *config.Config) Option {
	return func(b *registryBuilder) {
		if cfg == nil {
			return
		}
		for k, v := range cfg.CustomDistributions {
			b.custom[k] = v
		}
	}
}

// WithCustom overlays a single custom distribution.
func WithCustom(key string, d config.CustomDistribution) Option {
	return func(b *registryBuilder) {
		b.custom[key] = d
	}
}

// WithInfo registers an entry directly, shadowing any built-in with that key.
func WithInfo(key string, info Info) Option {
	return func(b *registryBuilder) {
		b.entries[Normalize(key)] = info
	}
}

// WithLogger sets the logger used to report skipped custom entries.
func WithLogger(l *log.Logger) Option {
	return func(b *registryBuilder) {
		b.logger = l
	}
}

// New builds a Registry: built-ins first, then options in order, then
// custom distributions from configuration.
func New(opts ...Option) *Registry {
	b := &registryBuilder{
		entries: builtins(),
		custom:  make(map[string]config.CustomDistribution),
	}
	for _, opt := range opts {
		opt(b)
	}
	logger := logging.OrDiscard(b.logger)

	for rawKey, c := range b.custom {
		key := Normalize(rawKey)
		info := Info{
			Name:           c.Name,
			Version:        c.Version,
			RootfsURL:      c.RootfsURL,
			PackageManager: ParsePackageManager(c.PackageManager),
			Source:         SourceVendor,
			Description:    c.Description,
			Custom:         true,
		}
		if info.Name == "" {
			info.Name = key
		}
		if err := info.Validate(key); err != nil {
			logger.Warn("skipping custom distribution", "key", key, "error", err)
			continue
		}
		b.entries[key] = info
	}

	return &Registry{entries: b.entries}
}

// Normalize lowercases and trims a distribution key.
func Normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// CustomKey builds the key used for a user-registered distribution.
func CustomKey(name, version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "latest"
	}
	return Normalize(name) + "-" + Normalize(version)
}

// Resolve looks a key up case-insensitively. Unknown keys return false.
func (r *Registry) Resolve(key string) (Info, bool) {
	info, ok := r.entries[Normalize(key)]
	return info, ok
}

// Has reports whether key resolves.
func (r *Registry) Has(key string) bool {
	_, ok := r.Resolve(key)
	return ok
}

// Keys returns every known key, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of known distributions.
func (r *Registry) Count() int {
	return len(r.entries)
}

// CacheFileName returns the rootfs cache file name for key.
func (r *Registry) CacheFileName(key string) string {
	key = Normalize(key)
	return CacheFileName(key, r.entries[key])
}

// CacheFileName returns the cache file name for a distribution. The
// extension follows the source URL; entries without a URL get ".tar.gz".
func CacheFileName(key string, info Info) string {
	key = Normalize(key)
	if strings.HasSuffix(strings.ToLower(info.RootfsURL), ".tar.xz") {
		return key + ".tar.xz"
	}
	return key + ".tar.gz"
}

// NotFound builds the error for an unknown key, listing every supported key.
func (r *Registry) NotFound(key string) error {
	return &issue.NotFoundError{
		Kind:  issue.KindDistribution,
		Name:  key,
		Valid: r.Keys(),
	}
}
