// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/distro"
	"github.com/thresh/thresh/internal/issue"
)

type distroAddOptions struct {
	url            string
	version        string
	packageManager string
	description    string
}

// newDistroCommand creates the `thresh distro` command tree for custom
// distributions. Entries are stored in the config file.
func newDistroCommand(app *App) *cobra.Command {
	distroCmd := &cobra.Command{
		Use:   "distro",
		Short: "Manage custom distributions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var add distroAddOptions
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a custom distribution",
		Long: `Register a rootfs archive as a distribution usable as a blueprint base.

The distribution key is "<name>-<version>", lowercased.

` + SubtitleStyle.Render("Example:") + `
  thresh distro add rocky --url https://example.com/rocky-9.tar.gz --version 9 --package-manager dnf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runDistroAdd(cmd, app, args[0], add))
		},
	}
	addCmd.Flags().StringVar(&add.url, "url", "", "URL of the rootfs tarball (.tar.gz or .tar.xz)")
	addCmd.Flags().StringVar(&add.version, "version", "latest", "distribution version")
	addCmd.Flags().StringVar(&add.packageManager, "package-manager", "apt", "package manager: apt, apk, dnf, yum, pacman or zypper")
	addCmd.Flags().StringVar(&add.description, "description", "", "description shown in listings")
	_ = addCmd.MarkFlagRequired("url")

	distroCmd.AddCommand(
		addCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List custom distributions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.fail(cmd, runDistroList(cmd, app))
			},
		},
		&cobra.Command{
			Use:   "remove <key>",
			Short: "Remove a custom distribution",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.fail(cmd, runDistroRemove(cmd, app, args[0]))
			},
		},
	)
	return distroCmd
}

func runDistroAdd(cmd *cobra.Command, app *App, name string, opts distroAddOptions) error {
	pm := strings.ToLower(strings.TrimSpace(opts.packageManager))
	if distro.ParsePackageManager(pm).String() != pm {
		return fmt.Errorf("unknown package manager %q (valid: apt, apk, dnf, yum, pacman, zypper)", opts.packageManager)
	}

	key := distro.CustomKey(name, opts.version)
	entry := config.CustomDistribution{
		Name:           name,
		Version:        opts.version,
		RootfsURL:      strings.TrimSpace(opts.url),
		PackageManager: pm,
		Description:    opts.description,
	}
	info := distro.Info{
		Name:           entry.Name,
		Version:        entry.Version,
		RootfsURL:      entry.RootfsURL,
		PackageManager: distro.PackageManager(pm),
		Source:         distro.SourceVendor,
	}
	if err := info.Validate(key); err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.CustomDistributions == nil {
		cfg.CustomDistributions = map[string]config.CustomDistribution{}
	}
	cfg.CustomDistributions[key] = entry
	if err := app.saveConfig(ctx, cfg); err != nil {
		return issue.WrapWithContext(err, "save config", key)
	}

	w := cmd.OutOrStdout()
	if distro.New().Has(key) {
		fmt.Fprintln(w, WarningStyle.Render("Note: "+key+" replaces the built-in distribution of the same key."))
	}
	fmt.Fprintf(w, "%s Added custom distribution %s\n\n", SuccessStyle.Render("✓"), CmdStyle.Render(key))
	fmt.Fprintln(w, "Use it in blueprints:")
	fmt.Fprintf(w, "  \"base\": %q\n", key)
	return nil
}

func runDistroList(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(cfg.CustomDistributions) == 0 {
		fmt.Fprintln(w, "No custom distributions configured.")
		fmt.Fprintf(w, "\nAdd one with:\n  %s\n", CmdStyle.Render("thresh distro add mylinux --url https://... --version 1.0 --package-manager dnf"))
		return nil
	}

	keys := make([]string, 0, len(cfg.CustomDistributions))
	for k := range cfg.CustomDistributions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable("KEY", "NAME", "VERSION", "PKG MANAGER", "URL")
	for _, k := range keys {
		d := cfg.CustomDistributions[k]
		t.Row(k, d.Name, d.Version, d.PackageManager, d.RootfsURL)
	}
	fmt.Fprintln(w, t.String())
	return nil
}

func runDistroRemove(cmd *cobra.Command, app *App, key string) error {
	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	stored := ""
	for k := range cfg.CustomDistributions {
		if distro.Normalize(k) == distro.Normalize(key) {
			stored = k
			break
		}
	}
	if stored == "" {
		nf := &issue.NotFoundError{Kind: issue.KindDistribution, Name: key}
		for k := range cfg.CustomDistributions {
			nf.Valid = append(nf.Valid, k)
		}
		sort.Strings(nf.Valid)
		return issue.WrapWithContext(nf, "remove custom distribution", key)
	}

	delete(cfg.CustomDistributions, stored)
	if err := app.saveConfig(ctx, cfg); err != nil {
		return issue.WrapWithContext(err, "save config", stored)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Removed custom distribution %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(stored))
	return nil
}
