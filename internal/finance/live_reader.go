package finance

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/irfndi/funnel-finance-go/internal/database"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/models"
)

// LiveResult is the outcome of a Live layer read.
type LiveResult struct {
	Records     []models.LiveRecord `json:"records"`
	Day         civil.Date          `json:"day"`
	Quarantined int                 `json:"quarantined"`
}

// LiveLayerReader reads the provisional same-day projection. Every read is
// audited.
type LiveLayerReader struct {
	db     database.Querier
	clock  Clock
	cfg    ReaderConfig
	cache  ResultCache
	audit  AuditSink
	logger *logging.StandardLogger
}

// NewLiveLayerReader creates a reader. cache may be nil.
func NewLiveLayerReader(db database.Querier, clock Clock, cfg ReaderConfig, cache ResultCache, audit AuditSink, logger *logging.StandardLogger) *LiveLayerReader {
	return &LiveLayerReader{
		db:     db,
		clock:  clock,
		cfg:    cfg,
		cache:  cache,
		audit:  audit,
		logger: logger,
	}
}

// Fetch returns today's Live records.
func (l *LiveLayerReader) Fetch(ctx context.Context, projectID string, funnelID *string, purpose string) (*LiveResult, error) {
	return l.FetchDay(ctx, projectID, funnelID, l.clock.Today(), purpose)
}

// FetchDay returns Live records for today as already resolved by the
// caller, so one aggregation uses a single notion of today.
func (l *LiveLayerReader) FetchDay(ctx context.Context, projectID string, funnelID *string, today civil.Date, purpose string) (*LiveResult, error) {
	if projectID == "" {
		return nil, ErrInvalidProject
	}

	result, err := l.read(ctx, projectID, funnelID, today)

	entry := models.AuditEntry{
		ProjectID: projectID,
		Operation: "live_read",
		Purpose:   purpose,
		Source:    models.DataSourceLive,
		Range:     &models.DateRange{Start: today, End: today},
		Success:   err == nil,
		CreatedAt: l.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.RecordCount = len(result.Records)
	}
	recordAudit(ctx, l.audit, l.logger, entry)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (l *LiveLayerReader) read(ctx context.Context, projectID string, funnelID *string, today civil.Date) (*LiveResult, error) {
	key := fmt.Sprintf("live:%s:%s:%s", projectID, funnelKey(funnelID), today)
	if l.cacheEnabled() {
		var cached LiveResult
		hit, err := l.cache.Get(ctx, key, &cached)
		if err != nil {
			l.logger.WithOperation("live_read").Warn("Live cache read failed", "key", key, "error", err.Error())
		} else if hit {
			l.logger.LogCacheOperation("get", key, true, 0)
			return &cached, nil
		}
	}

	query := database.RangeQuery{
		Source:  l.cfg.Source,
		Columns: liveColumns,
		Filters: []database.Filter{
			database.Eq("project_id", projectID),
			funnelFilter(funnelID),
			database.Eq("economic_day", today.String()),
		},
		OrderBy:  rowOrder,
		PageSize: l.cfg.PageSize,
	}

	start := time.Now()
	raw, err := database.FetchAll(ctx, l.db, query, scanLiveRow)
	if err != nil {
		return nil, err
	}
	l.logger.LogDatabaseOperation("select", l.cfg.Source, time.Since(start).Milliseconds(), int64(len(raw)))

	result := &LiveResult{
		Records: make([]models.LiveRecord, 0, len(raw)),
		Day:     today,
	}
	for _, row := range raw {
		rec, err := row.toRecord(projectID, today)
		if err != nil {
			result.Quarantined++
			l.logger.WithOperation("live_read").Warn("Quarantined live row",
				"project_id", projectID,
				"source", l.cfg.Source,
				"reason", err.Error(),
			)
			continue
		}
		result.Records = append(result.Records, rec)
	}

	if l.cacheEnabled() {
		if err := l.cache.Set(ctx, key, result, l.cfg.CacheTTL); err != nil {
			l.logger.WithOperation("live_read").Warn("Live cache write failed", "key", key, "error", err.Error())
		}
	}

	return result, nil
}

func (l *LiveLayerReader) cacheEnabled() bool {
	return l.cache != nil && l.cfg.CacheTTL > 0
}
