package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/funnel-finance-go/internal/database"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/models"
)

// ResultCache stores reader results as opaque values with a TTL.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// EpochSource resolves a project's epoch.
type EpochSource interface {
	GetEpoch(ctx context.Context, projectID string) (Epoch, error)
}

// ReaderConfig configures a Core or Live reader.
type ReaderConfig struct {
	Source   string
	PageSize int
	CacheTTL time.Duration
}

// CoreResult is the outcome of a Core ledger read.
type CoreResult struct {
	Records     []models.DailyFinancialRecord `json:"records"`
	Range       *models.DateRange             `json:"range,omitempty"`
	Quarantined int                           `json:"quarantined"`
}

// CoreLedgerReader reads the reconciled daily ledger. It never returns a
// day before the project's epoch.
type CoreLedgerReader struct {
	db     database.Querier
	epochs EpochSource
	clock  Clock
	cfg    ReaderConfig
	cache  ResultCache
	logger *logging.StandardLogger
}

// NewCoreLedgerReader creates a reader. cache may be nil.
func NewCoreLedgerReader(db database.Querier, epochs EpochSource, clock Clock, cfg ReaderConfig, cache ResultCache, logger *logging.StandardLogger) *CoreLedgerReader {
	return &CoreLedgerReader{
		db:     db,
		epochs: epochs,
		clock:  clock,
		cfg:    cfg,
		cache:  cache,
		logger: logger,
	}
}

// Fetch returns Core records for projectID within r, clipped to the epoch.
// A nil funnelID selects project totals.
func (c *CoreLedgerReader) Fetch(ctx context.Context, projectID string, funnelID *string, r models.DateRange) (*CoreResult, error) {
	if projectID == "" {
		return nil, ErrInvalidProject
	}

	epoch, err := c.epochs.GetEpoch(ctx, projectID)
	if err != nil {
		return nil, err
	}

	window, ok := epoch.ClipToCoreEra(r)
	if !ok {
		return &CoreResult{Records: []models.DailyFinancialRecord{}}, nil
	}

	// Entries roll over with the business day.
	key := fmt.Sprintf("core:%s:%s:%s:%s:%s", projectID, funnelKey(funnelID), window.Start, window.End, c.clock.Today())
	if c.cacheEnabled() {
		var cached CoreResult
		hit, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			c.logger.WithOperation("core_read").Warn("Core cache read failed", "key", key, "error", err.Error())
		} else if hit {
			c.logger.LogCacheOperation("get", key, true, 0)
			return &cached, nil
		}
	}

	start := time.Now()
	raw, err := database.FetchAll(ctx, c.db, c.query(projectID, funnelID, window), scanCoreRow)
	if err != nil {
		return nil, err
	}
	c.logger.LogDatabaseOperation("select", c.cfg.Source, time.Since(start).Milliseconds(), int64(len(raw)))

	result := &CoreResult{
		Records: make([]models.DailyFinancialRecord, 0, len(raw)),
		Range:   &window,
	}
	for _, row := range raw {
		rec, err := row.toRecord(projectID, window)
		if err != nil {
			result.Quarantined++
			c.logger.WithOperation("core_read").Warn("Quarantined core row",
				"project_id", projectID,
				"source", c.cfg.Source,
				"reason", err.Error(),
			)
			continue
		}
		result.Records = append(result.Records, rec)
	}

	if c.cacheEnabled() {
		if err := c.cache.Set(ctx, key, result, c.cfg.CacheTTL); err != nil {
			c.logger.WithOperation("core_read").Warn("Core cache write failed", "key", key, "error", err.Error())
		}
	}

	return result, nil
}

func (c *CoreLedgerReader) query(projectID string, funnelID *string, window models.DateRange) database.RangeQuery {
	return database.RangeQuery{
		Source:  c.cfg.Source,
		Columns: coreColumns,
		Filters: []database.Filter{
			database.Eq("project_id", projectID),
			funnelFilter(funnelID),
			database.Gte("economic_day", window.Start.String()),
			database.Lte("economic_day", window.End.String()),
		},
		OrderBy:  rowOrder,
		PageSize: c.cfg.PageSize,
	}
}

func (c *CoreLedgerReader) cacheEnabled() bool {
	return c.cache != nil && c.cfg.CacheTTL > 0
}

// rowOrder is unique per view row so OFFSET pages stay disjoint.
var rowOrder = []string{"economic_day", "id"}

func funnelFilter(funnelID *string) database.Filter {
	if funnelID == nil {
		return database.IsNull("funnel_id")
	}
	return database.Eq("funnel_id", *funnelID)
}

func funnelKey(funnelID *string) string {
	if funnelID == nil {
		return "all"
	}
	return *funnelID
}
