package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/config"
	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/catalog"
	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/database"
	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/handlers"
	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/middleware"
	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting catalog service")

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	svc := newCatalogService(cfg)
	catalogHandlers := handlers.NewCatalogHandlers(svc)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	setupRequestLogging(router, logger)

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	internal := router.Group("/internal")
	internal.Use(middleware.InternalAuth(os.Getenv("INTERNAL_API_KEY")))
	internal.Use(middleware.RateLimit(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
	}))
	{
		internal.GET("/health", handlers.HealthCheck)

		books := internal.Group("/catalog")
		{
			books.GET("/search", catalogHandlers.SearchBooks)
			books.GET("/export", catalogHandlers.ExportBooks)
			books.POST("/items", catalogHandlers.CreateBook)
			books.POST("/items/:id/relocate", catalogHandlers.RelocateBook)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Server exited")
}

func newCatalogService(cfg *config.Config) *catalog.Service {
	store := database.NewCatalogStore(database.Pool())

	locations := make(map[string]catalog.LocationRule, len(cfg.Allocator.Locations))
	for name, loc := range cfg.Allocator.Locations {
		locations[catalog.NormalizeLocation(name)] = catalog.LocationRule{
			Suffix:  loc.Suffix,
			Ceiling: loc.Ceiling,
		}
	}

	return catalog.NewService(store,
		catalog.BuilderConfig{
			PriceCeilingCents:    cfg.Catalog.PriceCeilingCents,
			ExactMatchCap:        cfg.Catalog.ExactMatchCap,
			PublisherLookupLimit: cfg.Catalog.PublisherLookupLimit,
		},
		catalog.AllocatorConfig{
			MaxAttempts:      cfg.Allocator.MaxAttempts,
			RecentSampleSize: cfg.Allocator.RecentSampleSize,
			RangeScanLimit:   cfg.Allocator.RangeScanLimit,
			DefaultCeiling:   cfg.Allocator.DefaultCeiling,
			Locations:        locations,
		},
		catalog.JitterBackoff{Max: time.Duration(cfg.Allocator.BackoffMaxMs) * time.Millisecond},
	)
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "catalog-service").Logger()
	return &logger
}

func setupRequestLogging(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("request_id", c.GetString("request_id")).
			Msg("HTTP request")
	})
}
