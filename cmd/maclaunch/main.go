package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/logger"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("MACLAUNCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.maclaunch")
	viper.AddConfigPath(".")

	config.SetDefaults(viper.GetViper())

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "maclaunch",
	Short: "Voice-controlled macOS application launcher",
	Long: `Maclaunch launches, lists, and closes macOS applications. It runs as a
skill daemon against a voice assistant message bus, and doubles as a CLI
for driving and debugging the same application controller directly.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging(viper.GetString("log_level"), viper.GetString("log_format"))
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

// configureLogging applies the configured level and format. An invalid
// level keeps the current one rather than aborting the command.
func configureLogging(level, format string) {
	if err := logger.SetLogLevel(level); err != nil {
		logger.L.WithError(err).Warnf("invalid log level %q, keeping current level", level)
	}
	logger.SetLogFormat(format)
}

func main() {
	// Add global flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json, text)")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(withTracing(runCmd))
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(runningCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
