package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/irfndi/funnel-finance-go/internal/api/handlers"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/middleware"
	"github.com/irfndi/funnel-finance-go/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Dependencies wires the HTTP surface to the domain services.
type Dependencies struct {
	Finance   handlers.FinanceService
	Epochs    handlers.EpochManager
	Integrity handlers.IntegrityReporter

	// Redis may be nil when caching is disabled.
	DB    handlers.HealthChecker
	Redis handlers.HealthChecker

	Logger         *logging.StandardLogger
	JWTSecret      string
	AdminAPIKey    string
	TrendPeriod    int
	Version        string
	AllowedOrigins []string
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(telemetry.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(corsConfig(deps.AllowedOrigins)))
	}

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis, deps.Version)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/health/live", healthHandler.LivenessCheck)

	financeHandler := handlers.NewFinanceHandler(deps.Finance, deps.TrendPeriod, deps.Logger)
	epochHandler := handlers.NewEpochHandler(deps.Epochs, deps.Logger)
	integrityHandler := handlers.NewIntegrityHandler(deps.Integrity, deps.Logger)

	auth := middleware.NewAuthMiddleware(deps.JWTSecret)
	admin := middleware.NewAdminMiddleware(deps.AdminAPIKey)

	v1 := router.Group("/api/v1")
	{
		projects := v1.Group("/projects/:project_id", auth.RequireAuth(), auth.RequireProjectAccess("project_id"))
		{
			projects.GET("/financials", financeHandler.GetFinancials)
			projects.GET("/financials/summary", financeHandler.GetSummary)
			projects.GET("/financials/ai-safe", financeHandler.GetAISafe)
			projects.GET("/financials/trust", financeHandler.GetTrust)
			projects.GET("/financials/trend", financeHandler.GetTrend)
			projects.GET("/financials/export", financeHandler.Export)

			projects.GET("/epoch", epochHandler.GetEpoch)
			projects.PUT("/epoch", auth.RequireRole(middleware.RoleAdmin), epochHandler.UpdateEpoch)
			projects.GET("/integrity", auth.RequireRole(middleware.RoleAdmin), integrityHandler.GetReport)
		}

		// Operator automation authenticates with the admin API key instead of a user token.
		adminProjects := v1.Group("/admin/projects/:project_id", admin.RequireAdminAuth())
		{
			adminProjects.GET("/epoch", epochHandler.GetEpoch)
			adminProjects.PUT("/epoch", epochHandler.UpdateEpoch)
			adminProjects.GET("/integrity", integrityHandler.GetReport)
		}
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AddAllowHeaders("Authorization", "X-API-Key", middleware.RequestIDHeader)
	cfg.AddExposeHeaders("Content-Disposition", middleware.RequestIDHeader)
	return cfg
}
