// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/issue"
	"github.com/thresh/thresh/internal/tui"
)

// newConfigCommand creates the `thresh config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage thresh configuration",
		Long: `Manage thresh configuration.

Configuration is stored in:
  - Linux: ~/.config/thresh/config.cue
  - macOS: ~/Library/Application Support/thresh/config.cue
  - Windows: %APPDATA%\thresh\config.cue

Well-known keys: runtime, default_base, paths.data_dir, paths.cache_dir,
paths.metadata_dir, paths.blueprints_dir, paths.install_dir,
paths.temp_dir, ui.verbose. Any other undotted key is stored as a
free-form setting. Every key can be overridden with a THRESH_ variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var force bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset all configuration to defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, resetConfig(cmd, app, force))
		},
	}
	resetCmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	cfgCmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Show a configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.fail(cmd, getConfigValue(cmd, app, args[0]))
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.fail(cmd, setConfigValue(cmd, app, args[0], args[1]))
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List configuration values",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.fail(cmd, listConfig(cmd, app))
			},
		},
		&cobra.Command{
			Use:   "delete <key>",
			Short: "Delete a configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.fail(cmd, deleteConfigValue(cmd, app, args[0]))
			},
		},
		resetCmd,
		&cobra.Command{
			Use:   "path",
			Short: "Show configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.ConfigFilePath(app.loadOptions())
				if err != nil {
					return app.fail(cmd, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Output the effective configuration as CUE",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.fail(cmd, dumpConfig(cmd, app))
			},
		},
	)
	return cfgCmd
}

func getConfigValue(cmd *cobra.Command, app *App, key string) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	value, ok := cfg.Get(key)
	if !ok {
		return fmt.Errorf("configuration key %q is not set", key)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", CmdStyle.Render(key), value)
	return nil
}

func setConfigValue(cmd *cobra.Command, app *App, key, value string) error {
	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		ec := issue.NewErrorContext().WithOperation("set configuration").WithResource(key)
		if errors.Is(err, config.ErrUnknownKey) {
			ec = ec.WithSuggestion("Run 'thresh config --help' for the list of keys")
		}
		return ec.Wrap(err).BuildError()
	}
	if err := app.saveConfig(ctx, cfg); err != nil {
		return issue.WrapWithContext(err, "save config", key)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Set %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(key))
	return nil
}

func listConfig(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, TitleStyle.Render("Configuration"))
	fmt.Fprintln(w)
	for _, kv := range cfg.List() {
		fmt.Fprintf(w, "  %s: %s\n", CmdStyle.Render(kv[0]), SuccessStyle.Render(kv[1]))
	}
	if n := len(cfg.CustomDistributions); n > 0 {
		fmt.Fprintf(w, "  %s: %d (see 'thresh distro list')\n", CmdStyle.Render("custom_distributions"), n)
	}

	fmt.Fprintln(w)
	if path, err := config.ConfigFilePath(app.loadOptions()); err == nil {
		fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("Config file:"), path)
	}
	return nil
}

func deleteConfigValue(cmd *cobra.Command, app *App, key string) error {
	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if !cfg.Delete(key) {
		fmt.Fprintf(w, "%s is not set\n", CmdStyle.Render(key))
		return nil
	}
	if err := app.saveConfig(ctx, cfg); err != nil {
		return issue.WrapWithContext(err, "save config", key)
	}
	fmt.Fprintf(w, "%s Deleted %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(key))
	return nil
}

func resetConfig(cmd *cobra.Command, app *App, force bool) error {
	w := cmd.OutOrStdout()
	if !force {
		ok, err := app.confirm(w, "This will delete all configuration, including custom distributions. Continue?")
		if err != nil && !errors.Is(err, tui.ErrCancelled) {
			return err
		}
		if !ok {
			fmt.Fprintln(w, "Cancelled.")
			return nil
		}
	}
	if err := app.saveConfig(cmd.Context(), config.DefaultConfig()); err != nil {
		return issue.WrapWithContext(err, "reset config", "")
	}
	fmt.Fprintf(w, "%s Configuration reset\n", SuccessStyle.Render("✓"))
	return nil
}

func dumpConfig(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	out, err := config.GenerateCUE(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
