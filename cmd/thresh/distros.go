// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thresh/thresh/internal/app/engine"
	"github.com/thresh/thresh/internal/distro"
)

// newDistrosCommand creates the `thresh distros` command.
func newDistrosCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "distros",
		Short: "List available distributions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runDistros(cmd, app))
		},
	}
}

func runDistros(cmd *cobra.Command, app *App) error {
	svc, _, err := app.service(cmd.Context())
	if err != nil {
		return err
	}

	dists := svc.Distributions()
	t := newTable("KEY", "VERSION", "SOURCE", "PKG MANAGER", "CACHED")
	var builtin, custom int
	for _, group := range [][]engine.Distribution{
		filterDistributions(dists, func(d engine.Distribution) bool { return !d.Info.Custom && d.Info.Source == distro.SourceVendor }),
		filterDistributions(dists, func(d engine.Distribution) bool { return !d.Info.Custom && d.Info.Source == distro.SourceManagedStore }),
		filterDistributions(dists, func(d engine.Distribution) bool { return d.Info.Custom }),
	} {
		for _, d := range group {
			if d.Info.Custom {
				custom++
			} else {
				builtin++
			}
			t.Row(d.Key, d.Info.Version, sourceLabel(d.Info), d.Info.PackageManager.String(), cachedLabel(d))
		}
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "\nTotal: %d built-in + %d custom\n", builtin, custom)
	return nil
}

func filterDistributions(in []engine.Distribution, keep func(engine.Distribution) bool) []engine.Distribution {
	var out []engine.Distribution
	for _, d := range in {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func sourceLabel(info distro.Info) string {
	switch {
	case info.Custom:
		return "custom"
	case info.Source == distro.SourceManagedStore:
		return "store (" + info.StoreInstallName + ")"
	default:
		return strings.ToLower(info.Source.String())
	}
}

func cachedLabel(d engine.Distribution) string {
	if d.Info.Source != distro.SourceVendor {
		return "-"
	}
	if d.Cached {
		return SuccessStyle.Render("yes")
	}
	return "no"
}
