// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// newVersionCommand creates the `thresh version` command. Besides the
// build version it reports the runtime the engine would use.
func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and runtime information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runVersion(cmd, app))
		},
	}
}

func runVersion(cmd *cobra.Command, app *App) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("thresh"), getVersionString())
	fmt.Fprintf(w, "%s %s %s/%s\n", SubtitleStyle.Render("Go:"), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(w)

	svc, _, err := app.service(cmd.Context())
	if err != nil {
		return err
	}
	req := svc.CheckRequirements(cmd.Context())
	if !req.RuntimeAvailable {
		fmt.Fprintf(w, "%s %s\n", WarningStyle.Render("Runtime:"), "not available")
		if req.Details != "" {
			fmt.Fprintf(w, "  %s\n", VerboseStyle.Render(req.Details))
		}
		return nil
	}

	fmt.Fprintf(w, "%s %s %s\n", SuccessStyle.Render("Runtime:"), req.RuntimeName, req.RuntimeVersion)
	fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("Platform:"), req.Platform)
	if req.Details != "" {
		fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("Details:"), req.Details)
	}
	fmt.Fprintf(w, "%s %d\n", SubtitleStyle.Render("Environments:"), req.DistributionCount)
	return nil
}
