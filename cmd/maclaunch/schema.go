package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/presenter"
)

var schemaCmd = &cobra.Command{
	Use:   "settings-schema",
	Short: "Print the JSON schema of the settings file",
	Run: func(cmd *cobra.Command, args []string) {
		schema, err := config.Schema()
		if err != nil {
			presenter.Error(err, "failed to generate settings schema")
			os.Exit(1)
		}
		fmt.Println(schema)
	},
}
