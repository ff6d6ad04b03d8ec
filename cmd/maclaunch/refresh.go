package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/presenter"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rescan the application directories and rebuild the catalog cache",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		settings, err := config.Load()
		if err != nil {
			presenter.Error(err, "failed to load settings")
			os.Exit(1)
		}

		database, err := openDatabase(ctx)
		if err != nil {
			presenter.Error(err, "failed to open database")
			os.Exit(1)
		}
		defer database.Close()

		catalog, err := apps.NewCatalog(apps.CatalogConfig{
			Dirs:            settings.AppDirs,
			ExcludePatterns: settings.ExcludePatterns,
			Aliases:         settings.Aliases,
			UserCommands:    settings.UserCommands,
			Threshold:       settings.MatchThreshold,
			TTL:             settings.CacheTTL(),
			Store:           apps.NewStore(database),
		})
		if err != nil {
			presenter.Error(err, "failed to create application catalog")
			os.Exit(1)
		}

		if err := catalog.Refresh(ctx); err != nil {
			presenter.Warning(fmt.Sprintf("scan finished with errors: %v", err))
		}

		presenter.Success(fmt.Sprintf("Catalog refreshed: %d applications", len(catalog.Apps())))
	},
}
