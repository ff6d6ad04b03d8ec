package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/history"
	"github.com/ovoskit/maclaunch/pkg/logger"
	"github.com/ovoskit/maclaunch/pkg/presenter"
	"github.com/ovoskit/maclaunch/pkg/status"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	Host string
	Port int
}

// NewServeConfig creates a new ServeConfig with default values
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host: "localhost",
		Port: 8765,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local status API server",
	Long: `Start a local HTTP server exposing the application catalog, the
running applications, and the usage history as JSON. Intended for
debugging and for host runtimes that poll skill state.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getServeConfigFromFlags(cmd)
		runServeCommand(ctx, config)
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the status server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the status server to")
}

// getServeConfigFromFlags extracts serve configuration from command flags
func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()

	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}

	return config
}

// validateServeConfig validates the serve configuration
func validateServeConfig(config *ServeConfig) error {
	if config.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if config.Host != "localhost" && config.Host != "0.0.0.0" {
		if ip := net.ParseIP(config.Host); ip == nil {
			if strings.Contains(config.Host, " ") || strings.Contains(config.Host, ":") {
				return fmt.Errorf("invalid host: %s", config.Host)
			}
		}
	}

	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", config.Port)
	}

	if config.Port < 1024 {
		logger.G(context.Background()).WithField("port", config.Port).Warn("using privileged port (< 1024) may require elevated permissions")
	}

	return nil
}

// runServeCommand starts the status API server
func runServeCommand(ctx context.Context, serveConfig *ServeConfig) {
	if err := validateServeConfig(serveConfig); err != nil {
		presenter.Error(err, "invalid server configuration")
		os.Exit(1)
	}

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

	server, err := status.NewServer(ctrl, history.NewStore(database), &status.ServerConfig{
		Host: serveConfig.Host,
		Port: serveConfig.Port,
	})
	if err != nil {
		presenter.Error(err, "failed to create status server")
		os.Exit(1)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			logger.G(ctx).WithError(closeErr).Error("failed to close status server")
		}
	}()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	presenter.Success(fmt.Sprintf("Status server starting on http://%s:%d", serveConfig.Host, serveConfig.Port))
	presenter.Info("Press Ctrl+C to stop the server")

	if err := server.Start(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("status server error")
		presenter.Error(err, "status server failed")
		os.Exit(1)
	}

	presenter.Info("Status server stopped")
}
