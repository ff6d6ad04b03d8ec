package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/history"
	"github.com/ovoskit/maclaunch/pkg/mcpserver"
	"github.com/ovoskit/maclaunch/pkg/presenter"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the application controller as MCP tools over stdio",
	Long: `Expose launch_app, close_app, list_apps, and app_status as MCP tools
over the stdio transport, so MCP-capable assistants can drive the same
controller the voice skill uses.`,
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

		server := mcpserver.New(ctrl, history.NewStore(database))
		if err := mcpserver.ServeStdio(server); err != nil {
			presenter.Error(err, "MCP server failed")
			os.Exit(1)
		}
	},
}
