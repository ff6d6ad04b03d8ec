package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/presenter"
)

var closeCmd = &cobra.Command{
	Use:   "close [name]",
	Short: "Close a running application by (fuzzy) name",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		name := strings.Join(args, " ")

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

		app, err := ctrl.Close(ctx, name)
		if err != nil {
			presenter.Error(err, fmt.Sprintf("failed to close %q", name))
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("Closed %s", app.Name))
	},
}
