package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deck-engine/internal/api"
	"github.com/ramonehamilton/deck-engine/internal/api/handlers"
	"github.com/ramonehamilton/deck-engine/internal/api/websocket"
	"github.com/ramonehamilton/deck-engine/internal/config"
	"github.com/ramonehamilton/deck-engine/internal/recommendations"
	"github.com/ramonehamilton/deck-engine/internal/storage"
)

func newServeCmd(opts *options) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		Long: `Serve exposes analysis, comparison and optimization over HTTP under /api/v1,
streams optimization progress on /ws and serves Prometheus metrics on /metrics.
Changes to the config file's log settings apply without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if cmd.Flags().Changed("port") {
					a.cfg.Server.Port = port
				}

				hub := websocket.NewHub(a.logger)
				server := api.NewServer(&api.Config{
					Port:           a.cfg.Server.Port,
					AllowedOrigins: a.cfg.Server.AllowedOrigins,
					Optimize: handlers.OptimizeDefaults{
						Format:            a.cfg.Engine.DefaultFormat,
						AcceptableChanges: a.cfg.Optimizer.MaxChanges,
						Timeout:           a.cfg.OptimizerTimeout(),
					},
				}, api.Deps{
					Analyzer:  a.analyzer,
					Optimizer: a.optimizer(recommendations.WithProgress(websocket.ProgressForwarder(hub))),
					Hub:       hub,
					Metrics:   a.metrics,
					Gatherer:  a.registry,
					Logger:    a.logger,
				})

				if interval := a.cfg.BackupInterval(); interval > 0 {
					scheduler := storage.NewBackupScheduler(a.backups(), interval, a.cfg.Storage.BackupKeep, a.logger)
					go scheduler.Run(ctx)
					a.logger.Info("scheduled backups enabled", "interval", interval, "dir", a.backups().Dir())
				}

				go func() {
					err := config.Watch(ctx, a.configPath, a.logger, func(cfg *config.Config) {
						setLevel(a.level, cfg.App)
						a.logger.Info("configuration reloaded", "debug", cfg.App.DebugMode)
					})
					if err != nil && !errors.Is(err, context.Canceled) {
						a.logger.Warn("config watch stopped", "error", err)
					}
				}()

				return server.Start(ctx)
			})
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Listen port (overrides server.port)")
	return cmd
}
