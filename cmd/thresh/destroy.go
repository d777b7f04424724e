// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thresh/thresh/internal/tui"
)

// newDestroyCommand creates the `thresh destroy` command.
func newDestroyCommand(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "destroy <name>",
		Aliases: []string{"rm"},
		Short:   "Remove an environment",
		Long: `Remove an environment and its metadata.

The environment's disk is deleted. Without --force a confirmation is
requested first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runDestroy(cmd, app, args[0], force))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	return cmd
}

func runDestroy(cmd *cobra.Command, app *App, name string, force bool) error {
	svc, _, err := app.service(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !force {
		ok, err := app.confirm(w, fmt.Sprintf("Are you sure you want to destroy '%s'?", name))
		if err != nil && !errors.Is(err, tui.ErrCancelled) {
			return err
		}
		if !ok {
			fmt.Fprintln(w, "Cancelled.")
			return nil
		}
	}

	if err := svc.Destroy(cmd.Context(), name); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s Environment %s removed\n", SuccessStyle.Render("✓"), CmdStyle.Render(name))
	return nil
}

// confirm asks a yes/no question on the App streams. The answer
// defaults to no.
func (a *App) confirm(w io.Writer, title string) (bool, error) {
	return tui.NewConfirm().
		Title(title).
		Default(false).
		Input(a.stdin).
		Output(w).
		Run()
}
