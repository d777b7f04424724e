// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
)

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads and persists configuration.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
	Save(ctx context.Context, cfg *Config, opts LoadOptions) error
}

type fileProvider struct{}

// NewProvider creates a file-backed configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source. A missing default
// config file yields DefaultConfig.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to the file Load would read for opts.
func (p *fileProvider) Save(ctx context.Context, cfg *Config, opts LoadOptions) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save config canceled: %w", err)
	}
	path, err := ConfigFilePath(opts)
	if err != nil {
		return err
	}
	return save(cfg, path)
}
