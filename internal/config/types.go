// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	// RuntimeAuto picks WSL on Windows and looks for nerdctl, docker, ctr elsewhere.
	RuntimeAuto RuntimeKind = "auto"
	// RuntimeWSL forces the WSL backend.
	RuntimeWSL RuntimeKind = "wsl"
	// RuntimeNerdctl forces the containerd backend with nerdctl.
	RuntimeNerdctl RuntimeKind = "nerdctl"
	// RuntimeDocker forces the containerd backend with docker.
	RuntimeDocker RuntimeKind = "docker"
	// RuntimeCtr forces the containerd backend with ctr.
	RuntimeCtr RuntimeKind = "ctr"

	// DefaultBase is the distribution used by blueprints that omit one.
	DefaultBase = "ubuntu-22.04"

	// EnvPrefix prefixes environment overrides and secrets.
	EnvPrefix = "THRESH"
)

var (
	// ErrInvalidRuntime is returned when a RuntimeKind value is not recognized.
	ErrInvalidRuntime = errors.New("invalid runtime")
	// ErrUnknownKey is returned by Set and Delete for keys outside the schema.
	ErrUnknownKey = errors.New("unknown config key")
)

type (
	// RuntimeKind selects the runtime backend.
	RuntimeKind string

	// InvalidRuntimeError is returned when a RuntimeKind value is not recognized.
	InvalidRuntimeError struct {
		Value RuntimeKind
	}

	// Paths holds the on-disk locations thresh manages. Empty values mean
	// "use the default under ~/.thresh".
	Paths struct {
		DataDir       string `json:"data_dir,omitempty" mapstructure:"data_dir"`
		CacheDir      string `json:"cache_dir,omitempty" mapstructure:"cache_dir"`
		MetadataDir   string `json:"metadata_dir,omitempty" mapstructure:"metadata_dir"`
		BlueprintsDir string `json:"blueprints_dir,omitempty" mapstructure:"blueprints_dir"`
		InstallDir    string `json:"install_dir,omitempty" mapstructure:"install_dir"`
		TempDir       string `json:"temp_dir,omitempty" mapstructure:"temp_dir"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// CustomDistribution is a user-registered rootfs source.
	CustomDistribution struct {
		Name           string `json:"name" mapstructure:"name"`
		Version        string `json:"version" mapstructure:"version"`
		RootfsURL      string `json:"rootfs_url" mapstructure:"rootfs_url"`
		PackageManager string `json:"package_manager,omitempty" mapstructure:"package_manager"`
		Description    string `json:"description,omitempty" mapstructure:"description"`
	}

	// Config holds the application configuration.
	Config struct {
		Runtime             RuntimeKind                   `json:"runtime" mapstructure:"runtime"`
		DefaultBase         string                        `json:"default_base" mapstructure:"default_base"`
		Paths               Paths                         `json:"paths" mapstructure:"paths"`
		UI                  UIConfig                      `json:"ui" mapstructure:"ui"`
		CustomDistributions map[string]CustomDistribution `json:"custom_distributions,omitempty" mapstructure:"custom_distributions"`
		Settings            map[string]string             `json:"settings,omitempty" mapstructure:"settings"`
	}
)

// String returns the string representation of the RuntimeKind.
func (r RuntimeKind) String() string { return string(r) }

// IsValid reports whether r names a known runtime.
func (r RuntimeKind) IsValid() (bool, []error) {
	switch r {
	case RuntimeAuto, RuntimeWSL, RuntimeNerdctl, RuntimeDocker, RuntimeCtr:
		return true, nil
	default:
		return false, []error{&InvalidRuntimeError{Value: r}}
	}
}

// Error implements the error interface.
func (e *InvalidRuntimeError) Error() string {
	return fmt.Sprintf("invalid runtime %q (valid: auto, wsl, nerdctl, docker, ctr)", e.Value)
}

// Unwrap returns ErrInvalidRuntime for errors.Is() compatibility.
func (e *InvalidRuntimeError) Unwrap() error { return ErrInvalidRuntime }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Runtime:             RuntimeAuto,
		DefaultBase:         DefaultBase,
		CustomDistributions: map[string]CustomDistribution{},
		Settings:            map[string]string{},
	}
}

// Get returns the value stored under key. Well-known dotted keys such as
// "runtime" or "paths.cache_dir" read the typed fields; anything else is
// looked up in Settings.
func (c *Config) Get(key string) (string, bool) {
	key = normalizeKey(key)
	if ptr := c.stringField(key); ptr != nil {
		return *ptr, *ptr != ""
	}
	switch key {
	case "runtime":
		return string(c.Runtime), c.Runtime != ""
	case "ui.verbose":
		return fmt.Sprintf("%t", c.UI.Verbose), true
	}
	v, ok := c.Settings[key]
	return v, ok
}

// Set stores value under key. Unknown dotted keys are rejected, plain
// keys go to Settings.
func (c *Config) Set(key, value string) error {
	key = normalizeKey(key)
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrUnknownKey)
	}
	if ptr := c.stringField(key); ptr != nil {
		*ptr = value
		return nil
	}
	switch key {
	case "runtime":
		rt := RuntimeKind(strings.ToLower(value))
		if ok, errs := rt.IsValid(); !ok {
			return errs[0]
		}
		c.Runtime = rt
		return nil
	case "ui.verbose":
		c.UI.Verbose = value == "true" || value == "1"
		return nil
	}
	if strings.Contains(key, ".") {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if c.Settings == nil {
		c.Settings = map[string]string{}
	}
	c.Settings[key] = value
	return nil
}

// Delete removes key, restoring the default for well-known keys. It
// reports whether anything changed.
func (c *Config) Delete(key string) bool {
	key = normalizeKey(key)
	defaults := DefaultConfig()
	if ptr := c.stringField(key); ptr != nil {
		def := defaults.stringField(key)
		changed := *ptr != *def
		*ptr = *def
		return changed
	}
	switch key {
	case "runtime":
		changed := c.Runtime != defaults.Runtime
		c.Runtime = defaults.Runtime
		return changed
	case "ui.verbose":
		changed := c.UI.Verbose
		c.UI.Verbose = false
		return changed
	}
	if _, ok := c.Settings[key]; !ok {
		return false
	}
	delete(c.Settings, key)
	return true
}

// List returns every non-empty key/value pair, keys sorted.
func (c *Config) List() [][2]string {
	out := make(map[string]string)
	for _, k := range []string{"runtime", "default_base", "paths.data_dir", "paths.cache_dir", "paths.metadata_dir", "paths.blueprints_dir", "paths.install_dir", "paths.temp_dir", "ui.verbose"} {
		if v, ok := c.Get(k); ok {
			out[k] = v
		}
	}
	for k, v := range c.Settings {
		out[k] = v
	}
	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([][2]string, len(keys))
	for i, k := range keys {
		pairs[i] = [2]string{k, out[k]}
	}
	return pairs
}

// GetSecret reads THRESH_<KEY> from the environment. Dots and dashes in key
// become underscores. Secrets are never written to the config file.
func (c *Config) GetSecret(key string) (string, bool) {
	return os.LookupEnv(SecretEnvName(key))
}

// SecretEnvName returns the environment variable GetSecret reads for key.
func SecretEnvName(key string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return EnvPrefix + "_" + strings.ToUpper(r.Replace(strings.TrimSpace(key)))
}

func (c *Config) stringField(key string) *string {
	switch key {
	case "default_base":
		return &c.DefaultBase
	case "paths.data_dir":
		return &c.Paths.DataDir
	case "paths.cache_dir":
		return &c.Paths.CacheDir
	case "paths.metadata_dir":
		return &c.Paths.MetadataDir
	case "paths.blueprints_dir":
		return &c.Paths.BlueprintsDir
	case "paths.install_dir":
		return &c.Paths.InstallDir
	case "paths.temp_dir":
		return &c.Paths.TempDir
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
