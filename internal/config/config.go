// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	"github.com/spf13/viper"

	"github.com/thresh/thresh/internal/cueutil"
	"github.com/thresh/thresh/internal/issue"
	"github.com/thresh/thresh/internal/platform"
)

const (
	// AppName is the application name.
	AppName = "thresh"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the thresh configuration directory: %APPDATA% on Windows,
// ~/Library/Application Support on macOS, $XDG_CONFIG_HOME (default ~/.config)
// elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ResolvePaths fills every empty path with its default. Data lives under
// ~/.thresh; the install directory is %LOCALAPPDATA%\thresh on Windows.
func (c *Config) ResolvePaths() (Paths, error) {
	p := c.Paths
	if p.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		p.DataDir = filepath.Join(home, "."+AppName)
	}
	if p.MetadataDir == "" {
		p.MetadataDir = filepath.Join(p.DataDir, "metadata")
	}
	if p.CacheDir == "" {
		p.CacheDir = filepath.Join(p.DataDir, "rootfs-cache")
	}
	if p.BlueprintsDir == "" {
		p.BlueprintsDir = filepath.Join(p.DataDir, "blueprints")
	}
	if p.TempDir == "" {
		p.TempDir = filepath.Join(p.DataDir, "temp")
	}
	if p.InstallDir == "" {
		if local := os.Getenv("LOCALAPPDATA"); runtime.GOOS == platform.Windows && local != "" {
			p.InstallDir = filepath.Join(local, AppName)
		} else {
			p.InstallDir = filepath.Join(p.DataDir, "instances")
		}
	}
	return p, nil
}

// ConfigFilePath returns the file Load reads and Save writes for opts.
func ConfigFilePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}
	dir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	cfgPath, err := ConfigFilePath(opts)
	if err != nil {
		return nil, "", err
	}

	resolvedPath := ""
	var custom map[string]CustomDistribution
	switch {
	case fileExists(cfgPath):
		custom, err = loadCUEIntoViper(v, cfgPath)
		if err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(cfgPath).
				WithSuggestion("Check that the file contains valid CUE or JSON").
				WithSuggestion("Verify the values match the #Config schema").
				WithSuggestion("Run 'thresh config reset' to start over").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		resolvedPath = cfgPath
	case opts.ConfigFilePath != "":
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestion("Verify the file path is correct").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.CustomDistributions = custom
	if cfg.CustomDistributions == nil {
		cfg.CustomDistributions = map[string]CustomDistribution{}
	}
	if cfg.Settings == nil {
		cfg.Settings = map[string]string{}
	}
	cfg.Runtime = RuntimeKind(strings.ToLower(string(cfg.Runtime)))
	if ok, errs := cfg.Runtime.IsValid(); !ok {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Set runtime to one of auto, wsl, nerdctl, docker or ctr").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// newViper returns a Viper instance with every scalar default registered so
// THRESH_* environment variables can override them.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("runtime", defaults.Runtime)
	v.SetDefault("default_base", defaults.DefaultBase)
	v.SetDefault("paths.data_dir", defaults.Paths.DataDir)
	v.SetDefault("paths.cache_dir", defaults.Paths.CacheDir)
	v.SetDefault("paths.metadata_dir", defaults.Paths.MetadataDir)
	v.SetDefault("paths.blueprints_dir", defaults.Paths.BlueprintsDir)
	v.SetDefault("paths.install_dir", defaults.Paths.InstallDir)
	v.SetDefault("paths.temp_dir", defaults.Paths.TempDir)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	return v
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper validates a config file against #Config and merges it into
// Viper. The file decodes into a map rather than Config so Viper keeps
// precedence over defaults and environment overrides. Custom distributions
// are returned separately: their keys contain dots, which Viper would split
// into nested keys.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]CustomDistribution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var custom map[string]CustomDistribution
	if cd := unified.LookupPath(cue.ParsePath("custom_distributions")); cd.Exists() {
		if err := cd.Decode(&custom); err != nil {
			return nil, cueutil.FormatError(err, path)
		}
	}
	delete(configMap, "custom_distributions")

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	return custom, nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// save writes cfg as CUE to path through a temp file and rename.
func save(cfg *Config, path string) error {
	content, err := GenerateCUE(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+ConfigFileName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a formatted config.cue document.
func GenerateCUE(cfg *Config) ([]byte, error) {
	ctx := cuecontext.New()
	val := ctx.Encode(cfg)
	if val.Err() != nil {
		return nil, fmt.Errorf("failed to encode config: %w", val.Err())
	}

	node := val.Syntax(cue.Final(), cue.Concrete(true))
	if lit, ok := node.(*ast.StructLit); ok {
		node = &ast.File{Decls: lit.Elts}
	}

	body, err := format.Node(node)
	if err != nil {
		return nil, fmt.Errorf("failed to format config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("// thresh configuration file.\n")
	sb.WriteString("// Secrets are read from THRESH_<KEY> environment variables and never stored here.\n\n")
	sb.Write(body)
	return []byte(sb.String()), nil
}
