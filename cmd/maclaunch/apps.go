package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/presenter"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List the applications known to the catalog",
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

		ctrl, err := buildController(ctx, settings, apps.NewStore(database))
		if err != nil {
			presenter.Error(err, "failed to build application catalog")
			os.Exit(1)
		}

		entries := ctrl.Catalog().Apps()
		presenter.Section(fmt.Sprintf("Applications (%d)", len(entries)))
		for _, app := range entries {
			marker := ""
			if app.Source == apps.SourceUserCommand {
				marker = " (user command)"
			}
			fmt.Printf("  %-40s %s%s\n", app.Name, app.Path, marker)
		}
	},
}
