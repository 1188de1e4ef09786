// Package api serves MRP runs, exports, the leveled BOM table and stock
// uploads over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vsinha/mrpbom/pkg/application/services/mrp"
	"github.com/vsinha/mrpbom/pkg/config"
	"github.com/vsinha/mrpbom/pkg/infrastructure/events"
	"github.com/vsinha/mrpbom/pkg/infrastructure/source"
	"github.com/vsinha/mrpbom/pkg/interfaces/api/handlers"
	"github.com/vsinha/mrpbom/pkg/interfaces/api/middleware"
	"github.com/vsinha/mrpbom/pkg/logger"
)

// Services are the dependencies the routes are built on. Events is optional.
type Services struct {
	Source source.Source
	MRP    *mrp.EventDrivenMRPService
	Cache  mrp.ResultCache
	Events events.EventStore
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		origins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(origins) > 0 {
			corsConfig.AllowOrigins = origins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	if services != nil && services.Source != nil {
		mrpHandler := handlers.NewMRPHandler(services.Source, services.MRP, services.Cache)
		mrpGroup := apiGroup.Group("/mrp")
		{
			mrpGroup.GET("", mrpHandler.GetSummary)
			mrpGroup.GET("/detailed", mrpHandler.GetDetailed)
			mrpGroup.GET("/export.csv", mrpHandler.ExportCSV)
			mrpGroup.GET("/export.xlsx", mrpHandler.ExportXLSX)
		}

		bomHandler := handlers.NewBOMHandler(services.Source)
		apiGroup.GET("/bom-flat", bomHandler.GetFlat)

		stockHandler := handlers.NewStockHandler(services.Source, services.MRP)
		apiGroup.POST("/stock", stockHandler.Upload)

		if services.Events != nil {
			eventsHandler := handlers.NewEventsHandler(services.Events)
			apiGroup.GET("/events", eventsHandler.List)
		}
	}

	return router
}

// CacheInvalidator is a result cache that can be cleared
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// InvalidateOnStock clears cache whenever store records a stock upload.
// Call the returned func to stop.
func InvalidateOnStock(store events.EventStore, cache CacheInvalidator) func() {
	return store.Subscribe(func(e events.Event) error {
		if err := cache.InvalidateAll(context.Background()); err != nil {
			return fmt.Errorf("failed to invalidate run cache after %s: %w", e.Type, err)
		}
		logger.Log.Debug().Int("position", e.Position).Msg("run cache invalidated after stock upload")
		return nil
	}, events.StockAppliedEvent)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// with a five second grace period
func Serve(ctx context.Context, cfg config.ServerConfig, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Log.Info().Msg("Server exiting")
	return nil
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
