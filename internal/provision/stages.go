// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/thresh/thresh/internal/container"
	"github.com/thresh/thresh/internal/distro"
	"github.com/thresh/thresh/internal/issue"
)

type (
	// run is the state of one Pipeline.Run.
	run struct {
		p      *Pipeline
		req    Request
		key    string
		info   distro.Info
		logger *log.Logger
	}

	stage struct {
		id    StageID
		title string
		// skip returns why the stage has nothing to do, or "".
		skip func() string
		run  func(ctx context.Context) error
	}
)

func (r *run) stages() []stage {
	bp := r.req.Blueprint
	return []stage{
		{
			id:    StageBase,
			title: "Installing base distribution: " + r.info.FullName(),
			skip:  func() string { return "" },
			run:   r.installBase,
		},
		{
			id:    StagePackages,
			title: fmt.Sprintf("Installing packages (%d packages)", len(bp.Packages)),
			skip:  skipIf(!bp.HasPackages(), "No packages to install"),
			run:   r.installPackages,
		},
		{
			id:    StageSetup,
			title: "Running setup script",
			skip:  skipIf(strings.TrimSpace(bp.Scripts.Setup) == "", "No setup script"),
			run:   r.runScript(bp.Scripts.Setup),
		},
		{
			id:    StageEnvironment,
			title: fmt.Sprintf("Configuring environment variables (%d variables)", len(bp.Environment)),
			skip:  skipIf(len(bp.Environment) == 0, "No environment variables"),
			run:   r.configureEnvironment,
		},
		{
			id:    StagePostInstall,
			title: "Running post-install script",
			skip:  skipIf(strings.TrimSpace(bp.Scripts.PostInstall) == "", "No post-install script"),
			run:   r.runScript(bp.Scripts.PostInstall),
		},
	}
}

func skipIf(cond bool, reason string) func() string {
	return func() string {
		if cond {
			return reason
		}
		return ""
	}
}

func (r *run) installBase(ctx context.Context) error {
	r.logger.Debug("base distribution",
		"packageManager", r.info.PackageManager,
		"source", r.info.Source)

	if r.info.Source == distro.SourceManagedStore {
		return r.installFromStore(ctx)
	}

	archive, err := r.p.cache.Ensure(ctx, r.key, r.info)
	if err != nil {
		return err
	}
	r.logger.Debug("importing rootfs", "archive", archive, "installPath", r.p.installPath(r.req.Name))
	return r.p.backend.ImportEnvironment(ctx, r.req.Name, archive, r.p.installPath(r.req.Name))
}

// installFromStore installs the store distribution, re-imports it under the
// environment's identifier and removes the store copy.
func (r *run) installFromStore(ctx context.Context) error {
	installer, ok := r.p.backend.(container.StoreInstaller)
	if !ok {
		return &issue.UnsupportedError{Runtime: r.p.backend.RuntimeName(), Operation: "installing store distributions"}
	}
	storeName := r.info.StoreInstallName

	r.logger.Info("installing from distribution store", "store", storeName)
	if err := installer.InstallFromStore(ctx, storeName); err != nil {
		return err
	}

	if r.p.tempDir != "" {
		if err := os.MkdirAll(r.p.tempDir, 0o755); err != nil {
			return fmt.Errorf("create temp directory: %w", err)
		}
	}
	tmp, err := os.MkdirTemp(r.p.tempDir, "store-export-*")
	if err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	archive := filepath.Join(tmp, storeName+".tar")
	if err := installer.Export(ctx, storeName, archive); err != nil {
		return err
	}
	if err := r.p.backend.ImportEnvironment(ctx, r.req.Name, archive, r.p.installPath(r.req.Name)); err != nil {
		return err
	}
	if err := installer.Unregister(ctx, storeName); err != nil {
		r.logger.Warn("could not remove the store copy", "store", storeName, "error", err)
	}
	return nil
}

func (r *run) installPackages(ctx context.Context) error {
	pkgs := r.req.Blueprint.Packages
	r.logger.Debug("packages", "list", strings.Join(pkgs, " "))

	cmd, err := PackageInstallCommand(pkgs)
	if err != nil {
		return err
	}
	return r.exec(ctx, cmd)
}

func (r *run) runScript(script string) func(context.Context) error {
	return func(ctx context.Context) error {
		if r.req.Verbose {
			for _, line := range strings.Split(script, "\n") {
				r.logger.Print("    " + line)
			}
		}
		return r.exec(ctx, ScriptCommand(script))
	}
}

func (r *run) configureEnvironment(ctx context.Context) error {
	env := r.req.Blueprint.Environment
	keys := r.req.Blueprint.EnvironmentKeys()
	for _, k := range keys {
		r.logger.Debug("environment variable", "key", k, "value", env[k])
	}
	cmd, err := ProfileCommand(env, keys)
	if err != nil {
		return err
	}
	return r.exec(ctx, cmd)
}

// exec runs cmd inside the environment. A failure carries the command's
// stderr, or its whole output when stderr was empty.
func (r *run) exec(ctx context.Context, cmd string) error {
	var onLine func(string)
	if r.req.Verbose {
		onLine = func(line string) { r.logger.Print("    " + line) }
	}
	res := r.p.backend.StreamCommand(ctx, r.req.Name, cmd, onLine)
	switch {
	case res.Success:
		return nil
	case res.ExitCode < 0 && res.Err != nil:
		return res.Err
	default:
		return &issue.ToolError{ExitCode: res.ExitCode, Output: res.ErrorText()}
	}
}
