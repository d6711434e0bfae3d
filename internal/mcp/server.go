// Package mcp exposes reconciled financial data to automated consumers over
// the Model Context Protocol. No tool returns Live or combined figures.
package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/irfndi/funnel-finance-go/internal/models"
	"github.com/irfndi/funnel-finance-go/internal/telemetry"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// FinanceService defines the finance operations needed by MCP.
type FinanceService interface {
	GetAISafeFinancials(ctx context.Context, projectID string, r models.DateRange, funnelID *string, purpose string) (*models.AISafeResult, error)
	Classification(ctx context.Context, projectID string, r models.DateRange) (models.Classification, error)
}

// Services contains the domain services needed by MCP.
type Services struct {
	Finance FinanceService
}

// Config contains server configuration.
type Config struct {
	Name      string
	Version   string
	Transport string // "stdio" or "http"
	Logger    *slog.Logger
}

const serverInstructions = "Financial figures for funnel projects. " +
	"get_ai_safe_financials returns only reconciled ledger days and is the only source fit for analysis or optimization. " +
	"classify_trust explains how a date range relates to the reconciled era and today."

// NewServer creates an MCP server with the finance tools registered.
func NewServer(services Services, cfg Config) *sdkmcp.Server {
	if cfg.Name == "" {
		cfg.Name = "funnel-finance"
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	server.AddReceivingMiddleware(loggingMiddleware(cfg.Logger))

	registerTools(server, services, telemetry.NewBusinessTracer())
	return server
}

func loggingMiddleware(logger *slog.Logger) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			if err != nil {
				logger.Warn("mcp request failed", "method", method, "duration_ms", time.Since(start).Milliseconds(), "error", err)
			} else {
				logger.Debug("mcp request", "method", method, "duration_ms", time.Since(start).Milliseconds())
			}
			return result, err
		}
	}
}
