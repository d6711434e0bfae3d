package finance

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/irfndi/funnel-finance-go/internal/database"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/models"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func jan(day int) civil.Date {
	return civil.Date{Year: 2026, Month: time.January, Day: day}
}

func rng(start, end civil.Date) models.DateRange {
	return models.DateRange{Start: start, End: end}
}

func discardLogger() *logging.StandardLogger {
	return logging.NewStandardLoggerWithWriter(io.Discard, "debug", "test")
}

func strPtr(s string) *string { return &s }

func pgText(s string) pgtype.Text { return pgtype.Text{String: s, Valid: true} }

func pgInt(v int64) pgtype.Int8 { return pgtype.Int8{Int64: v, Valid: true} }

func pgDay(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

// staticEpochs always resolves the same epoch.
type staticEpochs struct {
	start civil.Date
	err   error
	calls int
	mu    sync.Mutex
}

func (s *staticEpochs) GetEpoch(_ context.Context, projectID string) (Epoch, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return Epoch{}, s.err
	}
	return Epoch{ProjectID: projectID, Start: s.start}, nil
}

// fakeCore returns one record per day of the requested range.
type fakeCore struct {
	mu       sync.Mutex
	requests []models.DateRange
	funnels  []*string
	err      error
	extra    []models.DailyFinancialRecord
}

func (f *fakeCore) Fetch(_ context.Context, projectID string, funnelID *string, r models.DateRange) (*CoreResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.funnels = append(f.funnels, funnelID)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	res := &CoreResult{Range: &r}
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		net := decimal.NewFromInt(1000)
		spend := decimal.NewFromInt(250)
		res.Records = append(res.Records, models.DailyFinancialRecord{
			ProjectID:    projectID,
			FunnelID:     funnelID,
			EconomicDay:  d,
			GrossRevenue: decimal.NewFromInt(1100),
			PlatformFees: decimal.NewFromInt(100),
			NetRevenue:   net,
			AdSpend:      spend,
			Profit:       models.DeriveProfit(net, spend),
			ROAS:         models.DeriveROAS(net, spend),
			SalesCount:   10,
			DataSource:   models.DataSourceCore,
		})
	}
	res.Records = append(res.Records, f.extra...)
	return res, nil
}

// fakeLive returns a single estimated record for the requested day.
type fakeLive struct {
	mu       sync.Mutex
	days     []civil.Date
	funnels  []*string
	purposes []string
	err      error
}

func (f *fakeLive) FetchDay(_ context.Context, projectID string, funnelID *string, day civil.Date, purpose string) (*LiveResult, error) {
	f.mu.Lock()
	f.days = append(f.days, day)
	f.funnels = append(f.funnels, funnelID)
	f.purposes = append(f.purposes, purpose)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	revenue := decimal.NewFromInt(400)
	spend := decimal.NewFromInt(100)
	return &LiveResult{
		Day: day,
		Records: []models.LiveRecord{{
			ProjectID:   projectID,
			FunnelID:    funnelID,
			EconomicDay: day,
			Revenue:     revenue,
			AdSpend:     spend,
			Profit:      models.DeriveProfit(revenue, spend),
			ROAS:        models.DeriveROAS(revenue, spend),
			SalesCount:  3,
			DataSource:  models.DataSourceLive,
			IsEstimated: true,
		}},
	}, nil
}

// recordingAudit keeps every entry it receives.
type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	err     error
}

func (r *recordingAudit) Record(_ context.Context, entry models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.err
}

func (r *recordingAudit) all() []models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditEntry(nil), r.entries...)
}

// memoryCache is a ResultCache backed by a map of JSON documents.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	ttls  map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = data
	m.ttls[key] = ttl
	return nil
}

// memorySettings is an in-memory SettingsStore.
type memorySettings struct {
	mu        sync.Mutex
	rows      map[string]civil.Date
	getErr    error
	createErr error
	updates   int
}

func newMemorySettings() *memorySettings {
	return &memorySettings{rows: map[string]civil.Date{}}
}

func (m *memorySettings) Get(_ context.Context, projectID string) (*models.EpochSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	start, ok := m.rows[projectID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &models.EpochSettings{ProjectID: projectID, FinancialCoreStartDate: start}, nil
}

func (m *memorySettings) Create(_ context.Context, projectID string, start civil.Date) (*models.EpochSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if existing, ok := m.rows[projectID]; ok {
		return &models.EpochSettings{ProjectID: projectID, FinancialCoreStartDate: existing}, nil
	}
	m.rows[projectID] = start
	return &models.EpochSettings{ProjectID: projectID, FinancialCoreStartDate: start}, nil
}

func (m *memorySettings) Update(_ context.Context, projectID string, start civil.Date) (*models.EpochSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[projectID]; !ok {
		return nil, database.ErrNotFound
	}
	m.rows[projectID] = start
	m.updates++
	return &models.EpochSettings{ProjectID: projectID, FinancialCoreStartDate: start}, nil
}

// memoryEpochCache is an in-memory EpochCache.
type memoryEpochCache struct {
	mu          sync.Mutex
	items       map[string]civil.Date
	getErr      error
	invalidated []string
}

func newMemoryEpochCache() *memoryEpochCache {
	return &memoryEpochCache{items: map[string]civil.Date{}}
}

func (c *memoryEpochCache) Get(_ context.Context, projectID string) (civil.Date, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return civil.Date{}, false, c.getErr
	}
	d, ok := c.items[projectID]
	return d, ok, nil
}

func (c *memoryEpochCache) Set(_ context.Context, projectID string, start civil.Date) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[projectID] = start
	return nil
}

func (c *memoryEpochCache) Invalidate(_ context.Context, projectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, projectID)
	c.invalidated = append(c.invalidated, projectID)
	return nil
}

// stubLocker grants or refuses every lock.
type stubLocker struct {
	refuse   bool
	locked   int
	unlocked int
}

var errLockHeld = errors.New("lock held elsewhere")

func (l *stubLocker) Lock(_ context.Context, _ string) (func(context.Context) error, error) {
	if l.refuse {
		return nil, errLockHeld
	}
	l.locked++
	return func(context.Context) error {
		l.unlocked++
		return nil
	}, nil
}
