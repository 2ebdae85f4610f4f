package main

import (
	"context"
	"time"

	"github.com/newthinker/sigma/internal/api"
	"github.com/newthinker/sigma/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SIGMA HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		cfg := a.Config()
		metricsPath := ""
		if cfg.Metrics.Enabled {
			metricsPath = cfg.Metrics.Path
		}

		log.Info("starting SIGMA server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Strings("assets", cfg.Assets),
		)

		deps := api.Dependencies{
			Runner:   a.Pipeline(),
			Defaults: a.Request(nil, false),
			Metrics:  a.Metrics(),
			Stats:    a.GetStats,
		}

		server, err := api.NewServer(api.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			APIKey:      cfg.Server.APIKey,
			MetricsPath: metricsPath,
			MaxJobs:     cfg.Server.MaxJobs,
			JobTTL:      cfg.Server.JobTTL,
		}, deps, log.Named("api"))
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down SIGMA server")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})
}
