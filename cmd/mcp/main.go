// Command mcp serves the AI-safe finance tools over the Model Context
// Protocol, on stdio or streamable HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irfndi/funnel-finance-go/internal/app"
	"github.com/irfndi/funnel-finance-go/internal/config"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/mcp"
	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout belongs to JSON-RPC in stdio mode.
	logWriter := io.Writer(os.Stdout)
	if cfg.MCP.Transport == "stdio" {
		logWriter = os.Stderr
		if cfg.Telemetry.Exporter == "stdout" {
			cfg.Telemetry.Enabled = false
		}
	}
	logger := app.NewLogger(cfg, logWriter)
	defer func() {
		_ = logger.Shutdown(context.Background())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close(context.Background())

	server := mcp.NewServer(mcp.Services{Finance: application.Finance}, mcp.Config{
		Version:   cfg.Telemetry.ServiceVersion,
		Transport: cfg.MCP.Transport,
		Logger:    logger.WithComponent("mcp"),
	})

	if cfg.MCP.Transport == "stdio" {
		return runStdio(ctx, logger, server)
	}
	return runHTTP(ctx, logger, server, cfg.MCP.Port)
}

func runStdio(ctx context.Context, logger *logging.StandardLogger, server *sdkmcp.Server) error {
	logger.Logger().Info("Starting MCP stdio transport")
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func runHTTP(ctx context.Context, logger *logging.StandardLogger, server *sdkmcp.Server, port int) error {
	handler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.Handle("/mcp/", handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.LogStartup("funnel-finance-mcp", "", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("mcp http server: %w", err)
	case <-ctx.Done():
	}
	logger.LogShutdown("funnel-finance-mcp", "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
