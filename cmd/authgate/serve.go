package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/authgate/internal/di"
	"github.com/omarluq/authgate/internal/ro"
)

const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authgate server",
	Long: `Start the HTTP server. The config file is watched; exempt paths, the
login rate limit and the log level are applied without a restart.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	path := configPath()

	container, err := di.NewContainer(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Shutdown(); err != nil {
			log.Error().Err(err).Msg("container shutdown failed")
		}
	}()

	if err := container.HealthCheck(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to initialize services")
		return err
	}

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	srv := di.MustInvoke[*di.ServerService](container).Server
	checker := di.MustInvoke[*di.CheckerService](container)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfgSvc.StartWatching(ctx)
	checker.Start()

	if err := srv.Listen(); err != nil {
		log.Error().Err(err).Str("listen", cfgSvc.Get().Server.Listen).Msg("failed to bind")
		return err
	}
	log.Info().
		Str("listen", srv.Addr()).
		Str("auth_type", string(cfgSvc.Get().Auth.GetType())).
		Msg("starting authgate")

	if err := ro.ServeUntilShutdown(ctx, srv.ListenAndServe, srv.Shutdown, shutdownGrace); err != nil {
		log.Error().Err(err).Msg("server error")
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
