// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thresh/thresh/internal/app/engine"
)

// newStartCommand creates the `thresh start` command.
func newStartCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start <name>",
		Short: "Start a stopped environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runLifecycle(cmd, app, args[0], "started", (*engine.Service).Start))
		},
	}
}

// newStopCommand creates the `thresh stop` command.
func newStopCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name>",
		Short: "Stop a running environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runLifecycle(cmd, app, args[0], "stopped", (*engine.Service).Stop))
		},
	}
}

func runLifecycle(cmd *cobra.Command, app *App, name, verb string, fn func(*engine.Service, context.Context, string) error) error {
	svc, _, err := app.service(cmd.Context())
	if err != nil {
		return err
	}
	if err := fn(svc, cmd.Context(), name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Environment %s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(name), verb)
	return nil
}
