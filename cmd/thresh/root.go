// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "thresh",
		Short: "Disposable development environments from blueprints",
		Long: TitleStyle.Render("thresh") + SubtitleStyle.Render(" - Disposable development environments from blueprints") + `

thresh provisions named development environments from declarative
blueprints. On Windows environments are WSL distributions; elsewhere they
are containers run through nerdctl, docker or ctr.

` + SubtitleStyle.Render("Examples:") + `
  thresh up alpine-minimal          Provision from a bundled blueprint
  thresh up ./tools.yaml --name t1  Provision from a file
  thresh list                       List thresh environments
  thresh destroy t1                 Remove an environment
  thresh distros                    List available distributions`,
		SilenceUsage: true,
	}
	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is the platform config dir's thresh/config.cue)")
	rootCmd.PersistentFlags().StringVar(&app.flags.runtime, "runtime", "", "runtime override: auto, wsl, nerdctl, docker or ctr")

	rootCmd.AddCommand(
		newUpCommand(app),
		newListCommand(app),
		newDestroyCommand(app),
		newStartCommand(app),
		newStopCommand(app),
		newBlueprintsCommand(app),
		newDistrosCommand(app),
		newDistroCommand(app),
		newConfigCommand(app),
		newCacheCommand(app),
		newVersionCommand(app),
		newCompletionCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the root command and runs it. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
