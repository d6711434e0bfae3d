// Package app assembles the finance services from configuration. It is shared
// by the HTTP server, the MCP server and the integrity CLI.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/irfndi/funnel-finance-go/internal/cache"
	"github.com/irfndi/funnel-finance-go/internal/config"
	"github.com/irfndi/funnel-finance-go/internal/database"
	"github.com/irfndi/funnel-finance-go/internal/finance"
	"github.com/irfndi/funnel-finance-go/internal/integrity"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/telemetry"
	"github.com/sirupsen/logrus"
)

// Result cache key prefixes.
const (
	CorePrefix = "finance:core"
	LivePrefix = "finance:live"
)

// App holds the wired services and the connections they own.
type App struct {
	Config    *config.Config
	Logger    *logging.StandardLogger
	DB        *database.PostgresDB
	Redis     *database.RedisClient
	Epochs    *finance.EpochResolver
	Finance   *finance.Service
	Integrity *integrity.Service

	telemetry    *telemetry.Provider
	resultCaches []*cache.RedisResultCache
}

// NewLogger builds the structured logger for cfg writing JSON to w. OTLP log
// export replaces w when both telemetry and OTLP logs are enabled.
func NewLogger(cfg *config.Config, w io.Writer) *logging.StandardLogger {
	logrus.SetLevel(logging.ParseLogrusLevel(cfg.LogLevel))
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Telemetry.Enabled && cfg.Telemetry.OTLPLogs {
		return logging.NewStandardOTLPLogger(logging.OTLPConfig{
			Enabled:        true,
			Endpoint:       cfg.Telemetry.OTLPEndpoint,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Environment,
			LogLevel:       cfg.LogLevel,
			Fallback:       w,
		})
	}
	return logging.NewStandardLoggerWithWriter(w, cfg.LogLevel, cfg.Environment)
}

// New connects to Postgres and, when enabled, Redis, then wires the finance
// and integrity services. Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger *logging.StandardLogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	provider, err := telemetry.InitTelemetry(ctx, cfg.Telemetry, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.telemetry = provider

	loc, err := cfg.Finance.Location()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	db, err := database.NewPostgresConnection(ctx, &cfg.Database)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = db

	if cfg.Redis.Enabled {
		rdb, err := database.NewRedisConnection(ctx, cfg.Redis)
		if err != nil {
			// Caching is optional; every read falls through to Postgres.
			logger.WithError(err).Warn("Redis unavailable, running without cache")
		} else {
			a.Redis = rdb
		}
	}

	a.wire(database.NewTracedDB(db.Pool), finance.NewBusinessClock(loc))
	return a, nil
}

func (a *App) wire(db *database.TracedDB, clock finance.Clock) {
	cfg := a.Config.Finance

	var (
		epochCache  finance.EpochCache
		epochLocker finance.EpochLocker
		coreCache   finance.ResultCache
		liveCache   finance.ResultCache
	)
	if a.Redis != nil {
		epochCache = cache.NewRedisEpochCache(a.Redis.Client, cfg.EpochTTL())
		epochLocker = cache.NewRedisEpochLocker(a.Redis.Client, cfg.LockTTL())
		core := cache.NewRedisResultCache(a.Redis.Client, CorePrefix, a.Logger)
		live := cache.NewRedisResultCache(a.Redis.Client, LivePrefix, a.Logger)
		a.resultCaches = []*cache.RedisResultCache{core, live}
		coreCache, liveCache = core, live
	}

	audit := finance.MultiAuditSink{
		finance.NewLogAuditSink(a.Logger),
		database.NewAuditRepository(db, cfg.AuditTable),
	}

	a.Epochs = finance.NewEpochResolver(
		database.NewSettingsRepository(db, cfg.SettingsTable),
		epochCache, epochLocker, clock, a.Logger,
	)
	core := finance.NewCoreLedgerReader(db, a.Epochs, clock, finance.ReaderConfig{
		Source:   cfg.CoreSource,
		PageSize: cfg.PageSize,
		CacheTTL: cfg.CoreTTL(),
	}, coreCache, a.Logger)
	live := finance.NewLiveLayerReader(db, clock, finance.ReaderConfig{
		Source:   cfg.LiveSource,
		PageSize: cfg.PageSize,
		CacheTTL: cfg.LiveTTL(),
	}, liveCache, audit, a.Logger)

	a.Finance = finance.NewService(a.Epochs, core, live, clock, audit, a.Logger)

	integrityCfg := integrity.DefaultConfig()
	integrityCfg.PageSize = cfg.PageSize
	a.Integrity = integrity.NewService(db, integrityCfg, a.Logger)

	a.Logger.WithService(a.Config.Telemetry.ServiceName).Info("Finance services wired",
		"business_timezone", cfg.BusinessTimezone,
		"result_cache", a.Redis != nil,
		"page_size", cfg.PageSize,
	)
}

// Close releases connections and flushes telemetry. It is safe on a
// partially built App.
func (a *App) Close(ctx context.Context) {
	for _, c := range a.resultCaches {
		c.LogStats()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.Logger.WithError(err).Error("Failed to shutdown telemetry")
		}
	}
}
