package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/bus"
	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/dialog"
	"github.com/ovoskit/maclaunch/pkg/history"
	"github.com/ovoskit/maclaunch/pkg/logger"
	"github.com/ovoskit/maclaunch/pkg/presenter"
	"github.com/ovoskit/maclaunch/pkg/skill"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the skill daemon against the voice assistant message bus",
	Long: `Connect to the voice assistant message bus and serve launch/close
utterances until interrupted. The application catalog is primed from the
on-disk cache when fresh and rescanned otherwise.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := runDaemon(ctx); err != nil {
			presenter.Error(err, "skill daemon failed")
			os.Exit(1)
		}
	},
}

func runDaemon(ctx context.Context) error {
	shutdownTracing, err := initTracing(ctx)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to initialize tracing")
	} else {
		defer shutdownTracing(context.Background())
	}

	settings, err := config.Load()
	if err != nil {
		return err
	}

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	ctrl, err := buildController(ctx, settings, apps.NewStore(database))
	if err != nil {
		return err
	}

	renderer, err := dialog.NewRenderer(settings.Locale)
	if err != nil {
		return err
	}

	client, err := bus.NewClient(bus.ClientConfig{URL: settings.BusURL})
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}

	opts := []skill.Option{
		skill.WithHistory(history.NewStore(database)),
	}
	if manifest, err := skill.LoadManifest(skill.ManifestFileName); err == nil {
		opts = append(opts, skill.WithManifest(manifest))
	}

	sk := skill.New(client, ctrl, renderer, settings, opts...)
	if err := sk.Initialize(ctx); err != nil {
		return err
	}

	// Reload settings when the config file changes. Catalog directories
	// and the bus endpoint still require a restart.
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		go watchSettings(ctx, configFile, ctrl, sk)
	}

	presenter.Success("skill daemon started")
	return client.Listen(ctx)
}

func watchSettings(ctx context.Context, configFile string, ctrl *apps.Controller, sk *skill.Skill) {
	err := config.Watch(ctx, configFile, func() {
		if err := viper.ReadInConfig(); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to re-read config file")
			return
		}
		fresh, err := config.Load()
		if err != nil {
			logger.G(ctx).WithError(err).Warn("failed to reload settings")
			return
		}

		sk.ReplaceSettings(fresh)
		if err := ctrl.Catalog().UpdateConfig(apps.CatalogConfig{
			ExcludePatterns: fresh.ExcludePatterns,
			Aliases:         fresh.Aliases,
			UserCommands:    fresh.UserCommands,
			Threshold:       fresh.MatchThreshold,
			TTL:             fresh.CacheTTL(),
		}); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to apply reloaded settings to catalog")
			return
		}
		logger.G(ctx).Info("settings reloaded from config file")
	})
	if err != nil {
		logger.G(ctx).WithError(err).Warn("config file watcher stopped")
	}
}
