package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ovoskit/maclaunch/pkg/history"
	"github.com/ovoskit/maclaunch/pkg/presenter"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent launch and close activity",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		limit, _ := cmd.Flags().GetInt("limit")
		showTop, _ := cmd.Flags().GetBool("top")

		database, err := openDatabase(ctx)
		if err != nil {
			presenter.Error(err, "failed to open database")
			os.Exit(1)
		}
		defer database.Close()

		store := history.NewStore(database)

		if showTop {
			top, err := store.TopApps(ctx, limit)
			if err != nil {
				presenter.Error(err, "failed to load top applications")
				os.Exit(1)
			}

			type entry struct {
				app   string
				count int
			}
			entries := make([]entry, 0, len(top))
			for app, count := range top {
				entries = append(entries, entry{app, count})
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].count > entries[j].count })

			presenter.Section("Most launched applications")
			for _, e := range entries {
				fmt.Printf("  %-40s %d\n", e.app, e.count)
			}
			return
		}

		events, err := store.Recent(ctx, limit)
		if err != nil {
			presenter.Error(err, "failed to load history")
			os.Exit(1)
		}

		presenter.Section("Recent activity")
		for _, event := range events {
			status := "ok"
			if !event.OK {
				status = "failed"
			}
			fmt.Printf("  %s  %-7s %-40s %s\n",
				event.CreatedAt.Format("2006-01-02 15:04:05"), event.Action, event.App, status)
		}
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of entries to show")
	historyCmd.Flags().Bool("top", false, "Show the most launched applications instead of recent events")
}
