package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/presenter"
)

var runningCmd = &cobra.Command{
	Use:   "running",
	Short: "List catalog applications with live processes",
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

		presenter.Section("Running applications")
		count := 0
		for _, app := range ctrl.Catalog().Apps() {
			procs, err := ctrl.MatchProcess(ctx, app.Name)
			if err != nil {
				presenter.Error(err, "failed to inspect process table")
				os.Exit(1)
			}
			if len(procs) == 0 {
				continue
			}
			count++
			pids := make([]string, 0, len(procs))
			for _, proc := range procs {
				pids = append(pids, fmt.Sprintf("%d", proc.PID))
			}
			fmt.Printf("  %-40s pids: %v\n", app.Name, pids)
		}
		if count == 0 {
			presenter.Info("No catalog applications are running")
		}
	},
}
