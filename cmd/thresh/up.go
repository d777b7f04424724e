// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thresh/thresh/internal/app/engine"
	"github.com/thresh/thresh/internal/container"
	"github.com/thresh/thresh/internal/provision"
)

// newUpCommand creates the `thresh up` command.
func newUpCommand(app *App) *cobra.Command {
	var (
		name       string
		resumeFrom string
	)

	cmd := &cobra.Command{
		Use:   "up <blueprint>",
		Short: "Provision an environment from a blueprint",
		Long: `Provision an environment from a blueprint.

The blueprint is a bundled or user blueprint name, or a path to a
.json, .cue, .yaml or .toml file. The environment is named after the
blueprint unless --name is given.

` + SubtitleStyle.Render("Examples:") + `
  thresh up alpine-minimal
  thresh up ./python.yaml --name py
  thresh up python-dev --name py --resume-from setup`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return app.blueprintNames(cmd), cobra.ShellCompDirectiveDefault
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runUp(cmd, app, args[0], name, resumeFrom))
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "environment name (default is the blueprint name)")
	cmd.Flags().StringVar(&resumeFrom, "resume-from", "", "rerun an existing environment from this stage: base, packages, setup, environment or postInstall")
	return cmd
}

func runUp(cmd *cobra.Command, app *App, blueprintArg, name, resumeFrom string) error {
	ctx := cmd.Context()
	svc, cfg, err := app.service(ctx)
	if err != nil {
		return err
	}

	bp, err := svc.GetBlueprint(blueprintArg)
	if err != nil {
		return err
	}
	if name == "" {
		name = engine.DefaultName(blueprintArg)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Blueprint:"), bp.Name)
	if bp.Description != "" {
		fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("Description:"), bp.Description)
	}
	switch {
	case bp.Base != "":
		fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("Base:"), bp.Base)
	case cfg.DefaultBase != "":
		fmt.Fprintf(w, "%s %s (default_base)\n", SubtitleStyle.Render("Base:"), cfg.DefaultBase)
	}
	fmt.Fprintln(w)

	res, err := svc.Provision(ctx, name, bp, engine.ProvisionOptions{
		Verbose:    app.flags.verbose,
		ResumeFrom: provision.StageID(resumeFrom),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s Environment %s ready in %s\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(name), res.Duration.Round(100*time.Millisecond))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Access your environment:")
	fmt.Fprintf(w, "  %s\n", CmdStyle.Render(accessCommand(svc.Backend().RuntimeName(), name)))
	return nil
}

// accessCommand returns the shell command that opens a shell in name.
func accessCommand(runtime, name string) string {
	id := container.BackendIdentifier(name)
	switch runtime {
	case "wsl":
		return "wsl -d " + id
	case "containerd":
		return "ctr task exec -t --exec-id shell " + id + " sh"
	default:
		return runtime + " exec -it " + id + " sh"
	}
}

// blueprintNames lists catalog names for shell completion. File paths
// still complete through the default directive.
func (a *App) blueprintNames(cmd *cobra.Command) []string {
	svc, _, err := a.service(cmd.Context())
	if err != nil {
		return nil
	}
	entries := svc.ListBlueprints()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}
