package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vsinha/mrpbom/pkg/application/services/mrp"
	"github.com/vsinha/mrpbom/pkg/infrastructure/cache"
	"github.com/vsinha/mrpbom/pkg/infrastructure/events"
	"github.com/vsinha/mrpbom/pkg/infrastructure/source"
	"github.com/vsinha/mrpbom/pkg/interfaces/api"
	"github.com/vsinha/mrpbom/pkg/logger"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port        string
		scenarioDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MRP runs, exports and stock uploads over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := *opts.config
			if port != "" {
				app.Server.Port = port
			}
			if scenarioDir != "" {
				app.Data.Source = "csv"
				app.Data.ScenarioDir = scenarioDir
			}

			engineConfig, err := app.Engine.ToEngineConfig()
			if err != nil {
				return err
			}

			if app.Server.Mode == "debug" {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			src, err := source.New(&app)
			if err != nil {
				return fmt.Errorf("failed to open data source: %w", err)
			}
			defer src.Close()

			runCache, err := cache.NewRunCache(app.Cache)
			if err != nil {
				logger.Log.Warn().Err(err).Msg("result cache unavailable, running without it")
				runCache = cache.NewNoopRunCache()
			}
			defer runCache.Close()

			store := events.NewInMemoryEventStore(events.WithRetention(app.Server.EventRetention))
			defer api.InvalidateOnStock(store, runCache)()
			router := api.NewRouter(&api.Services{
				Source: src,
				MRP:    mrp.NewEventDrivenMRPService(store, mrp.WithConfig(engineConfig)),
				Cache:  runCache,
				Events: store,
			}, app.Server.AllowedOrigins)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return api.Serve(ctx, app.Server, router)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides server.port)")
	cmd.Flags().StringVar(&scenarioDir, "scenario", "", "CSV scenario directory (overrides data.source)")
	return cmd
}
