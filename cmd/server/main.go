package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/funnel-finance-go/internal/api"
	"github.com/irfndi/funnel-finance-go/internal/api/handlers"
	"github.com/irfndi/funnel-finance-go/internal/app"
	"github.com/irfndi/funnel-finance-go/internal/config"
	"github.com/irfndi/funnel-finance-go/internal/telemetry"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := app.NewLogger(cfg, os.Stdout)
	defer func() {
		_ = logger.Shutdown(context.Background())
	}()

	ctx := context.Background()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close(context.Background())

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Keep the interface nil when Redis is off so health reports it disabled.
	var redisHealth handlers.HealthChecker
	if application.Redis != nil {
		redisHealth = application.Redis
	}

	router := gin.New()
	api.SetupRoutes(router, api.Dependencies{
		Finance:        application.Finance,
		Epochs:         application.Epochs,
		Integrity:      application.Integrity,
		DB:             application.DB,
		Redis:          redisHealth,
		Logger:         logger,
		JWTSecret:      cfg.Security.JWTSecret,
		AdminAPIKey:    cfg.Security.AdminAPIKey,
		TrendPeriod:    cfg.Finance.TrendPeriod,
		Version:        cfg.Telemetry.ServiceVersion,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.LogStartup(telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	logger.LogShutdown(telemetry.ServiceName, "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Logger().Info("Server exited gracefully")
	return nil
}
