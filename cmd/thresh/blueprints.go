// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thresh/thresh/internal/blueprint"
)

// newBlueprintsCommand creates the `thresh blueprints` command.
func newBlueprintsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "blueprints [name]",
		Short: "List blueprints or show one",
		Long: `List the bundled and user blueprints, or show the contents of one.

User blueprints live in the blueprints directory (paths.blueprints_dir)
and take precedence over bundled ones of the same name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return app.fail(cmd, showBlueprint(cmd, app, args[0]))
			}
			return app.fail(cmd, listBlueprints(cmd, app))
		},
	}
}

func listBlueprints(cmd *cobra.Command, app *App) error {
	svc, _, err := app.service(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	entries := svc.ListBlueprints()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No blueprints found.")
		return nil
	}

	t := newTable("NAME", "BASE", "ORIGIN", "DESCRIPTION")
	for _, e := range entries {
		t.Row(e.Name, e.Base, string(e.Origin), e.Description)
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "\nUsage: %s\n", CmdStyle.Render("thresh up <blueprint>"))
	return nil
}

func showBlueprint(cmd *cobra.Command, app *App, name string) error {
	svc, _, err := app.service(cmd.Context())
	if err != nil {
		return err
	}
	bp, err := svc.GetBlueprint(name)
	if err != nil {
		return err
	}
	writeBlueprint(cmd.OutOrStdout(), bp)
	return nil
}

func writeBlueprint(w io.Writer, bp *blueprint.Blueprint) {
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(label+":"), value)
		}
	}
	field("Name", bp.Name)
	field("Description", bp.Description)
	field("Base", bp.Base)
	if bp.HasPackages() {
		field("Packages", strings.Join(bp.Packages, " "))
	}

	if keys := bp.EnvironmentKeys(); len(keys) > 0 {
		fmt.Fprintln(w, TitleStyle.Render("Environment:"))
		for _, k := range keys {
			fmt.Fprintf(w, "  %s=%s\n", CmdStyle.Render(k), bp.Environment[k])
		}
	}
	script := func(label, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		fmt.Fprintln(w, TitleStyle.Render(label+":"))
		for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
			fmt.Fprintln(w, "  "+VerboseStyle.Render(line))
		}
	}
	script("Setup", bp.Scripts.Setup)
	script("Post-install", bp.Scripts.PostInstall)
}
