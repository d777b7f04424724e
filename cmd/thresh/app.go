// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"github.com/thresh/thresh/internal/app/engine"
	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/logging"
	"github.com/thresh/thresh/internal/procexec"
	"github.com/thresh/thresh/internal/rootfs"
)

type (
	// App wires CLI services and shared dependencies. Every Cobra handler
	// receives an App and delegates to the engine facade it builds.
	App struct {
		Config     config.Provider
		executor   procexec.Executor
		downloader rootfs.Downloader
		bundled    fs.FS
		stdin      io.Reader
		stdout     io.Writer
		stderr     io.Writer
		flags      rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     config.Provider
		Executor   procexec.Executor
		Downloader rootfs.Downloader
		// Blueprints replaces the embedded blueprint set.
		Blueprints fs.FS
		Stdin      io.Reader
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// rootFlags holds the persistent flag values.
	rootFlags struct {
		verbose    bool
		configPath string
		runtime    string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config:     deps.Config,
		executor:   deps.Executor,
		downloader: deps.Downloader,
		bundled:    deps.Blueprints,
		stdin:      deps.Stdin,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

// loadOptions returns the config source selected by --config.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.flags.configPath}
}

// loadConfig loads configuration and folds ui.verbose into the flag state.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return nil, err
	}
	if cfg.UI.Verbose {
		a.flags.verbose = true
	}
	return cfg, nil
}

// saveConfig persists cfg to the file loadConfig reads.
func (a *App) saveConfig(ctx context.Context, cfg *config.Config) error {
	return a.Config.Save(ctx, cfg, a.loadOptions())
}

// logger returns the progress logger. It writes to stderr so listings on
// stdout stay machine-readable.
func (a *App) logger() *log.Logger {
	return logging.New(a.stderr, logging.Options{Verbose: a.flags.verbose})
}

// service loads configuration and builds the engine facade.
func (a *App) service(ctx context.Context) (*engine.Service, *config.Config, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	runtime, err := engine.ResolveRuntime(config.RuntimeKind(a.flags.runtime), cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := []engine.Option{
		engine.WithRuntime(runtime),
		engine.WithLogger(a.logger()),
	}
	if a.executor != nil {
		opts = append(opts, engine.WithExecutor(a.executor))
	}
	if a.downloader != nil {
		opts = append(opts, engine.WithDownloader(a.downloader))
	}
	if a.bundled != nil {
		opts = append(opts, engine.WithBundledBlueprints(a.bundled))
	}
	svc, err := engine.New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}
