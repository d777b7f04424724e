// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCacheCommand creates the `thresh cache` command tree.
func newCacheCommand(app *App) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage downloaded root filesystems",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cached root filesystems",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.fail(cmd, listCache(cmd, app))
			},
		},
		&cobra.Command{
			Use:   "clear [key]",
			Short: "Remove one or all cached root filesystems",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.fail(cmd, clearCache(cmd, app, args))
			},
		},
	)
	return cacheCmd
}

func listCache(cmd *cobra.Command, app *App) error {
	svc, _, err := app.service(cmd.Context())
	if err != nil {
		return err
	}
	entries, err := svc.Cache().Entries()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(w, "Cache is empty (%s)\n", svc.Cache().Dir())
		return nil
	}

	t := newTable("KEY", "SIZE", "DOWNLOADED")
	var total int64
	for _, e := range entries {
		total += e.Size
		t.Row(e.Key, formatSize(e.Size), e.ModTime.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "\n%d archives, %s in %s\n", len(entries), formatSize(total), svc.Cache().Dir())
	return nil
}

func clearCache(cmd *cobra.Command, app *App, args []string) error {
	svc, _, err := app.service(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(args) == 1 {
		removed, err := svc.Cache().Evict(args[0])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(w, "%s is not cached\n", CmdStyle.Render(args[0]))
			return nil
		}
		fmt.Fprintf(w, "%s Removed %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(args[0]))
		return nil
	}

	n, err := svc.Cache().Clear()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s Removed %d cached archives\n", SuccessStyle.Render("✓"), n)
	return nil
}

// formatSize renders a byte count with a binary unit.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
