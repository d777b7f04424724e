// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newListCommand creates the `thresh list` command.
func newListCommand(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List environments",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runList(cmd, app, all))
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include environments thresh did not create")
	return cmd
}

func runList(cmd *cobra.Command, app *App, all bool) error {
	svc, _, err := app.service(cmd.Context())
	if err != nil {
		return err
	}
	envs, err := svc.ListEnvironments(cmd.Context(), all)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(envs) == 0 {
		fmt.Fprintln(w, "No environments found.")
		if !all {
			fmt.Fprintln(w, SubtitleStyle.Render("Use --all to include environments thresh did not create."))
		}
		return nil
	}

	t := newTable("NAME", "STATUS", "VERSION", "BLUEPRINT")
	for _, env := range envs {
		t.Row(env.Name, statusStyle(env.Status).Render(env.Status.String()), env.Version, env.BlueprintName)
	}
	fmt.Fprintln(w, t.String())
	return nil
}
