// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nugraph/nugraph/internal/nuget"
)

func newCacheCommand(app *App) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the on-disk feed response cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete cached responses older than http.cache_ttl",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.pruneCache()
		},
	})

	return cacheCmd
}

func (a *App) pruneCache() error {
	httpCfg := a.config().HTTP
	dir, err := cacheDir(httpCfg)
	if err != nil {
		return err
	}
	disk, err := nuget.OpenDiskCache(dir, httpCfg.CacheTTL)
	if err != nil {
		return err
	}
	removed, err := disk.Prune()
	if closeErr := disk.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("prune cache in %s: %w", dir, err)
	}

	fmt.Fprintf(a.stdout, "%s Removed %d expired entries from %s\n", a.palette().success.Render("✓"), removed, dir)
	return nil
}
