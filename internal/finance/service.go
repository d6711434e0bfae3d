package finance

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/irfndi/funnel-finance-go/internal/finance"

// CoreSource reads reconciled records for a range already clipped by the caller.
type CoreSource interface {
	Fetch(ctx context.Context, projectID string, funnelID *string, r models.DateRange) (*CoreResult, error)
}

// LiveSource reads provisional records for a single day.
type LiveSource interface {
	FetchDay(ctx context.Context, projectID string, funnelID *string, day civil.Date, purpose string) (*LiveResult, error)
}

// Service is the time-aware entry point for display and automation callers.
type Service struct {
	epochs EpochSource
	core   CoreSource
	live   LiveSource
	clock  Clock
	audit  AuditSink
	logger *logging.StandardLogger
	tracer trace.Tracer
}

func NewService(epochs EpochSource, core CoreSource, live LiveSource, clock Clock, audit AuditSink, logger *logging.StandardLogger) *Service {
	return &Service{
		epochs: epochs,
		core:   core,
		live:   live,
		clock:  clock,
		audit:  audit,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Classification resolves the epoch and today for projectID and classifies r.
func (s *Service) Classification(ctx context.Context, projectID string, r models.DateRange) (models.Classification, error) {
	if err := validateRequest(projectID, r); err != nil {
		return models.Classification{}, err
	}
	epoch, err := s.epochs.GetEpoch(ctx, projectID)
	if err != nil {
		return models.Classification{}, err
	}
	return Classify(r, epoch.Start, s.clock.Today()), nil
}

// GetTimeAwareFinancials returns Core data before today and Live data for
// today, never both for the same day. CombinedData is for display only.
func (s *Service) GetTimeAwareFinancials(ctx context.Context, projectID string, r models.DateRange, funnelID *string) (*models.TimeAwareResult, error) {
	ctx, span := s.tracer.Start(ctx, "finance.GetTimeAwareFinancials", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.String("range.start", r.Start.String()),
		attribute.String("range.end", r.End.String()),
	))
	defer span.End()

	result, err := s.timeAware(ctx, projectID, r, funnelID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("finance.mode", string(result.Mode)),
		attribute.String("finance.trust_level", string(result.TrustLevel)),
		attribute.Int("finance.core_records", len(result.CoreData)),
		attribute.Int("finance.live_records", len(result.LiveData)),
	)
	return result, nil
}

func (s *Service) timeAware(ctx context.Context, projectID string, r models.DateRange, funnelID *string) (*models.TimeAwareResult, error) {
	if err := validateRequest(projectID, r); err != nil {
		return nil, err
	}

	today := s.clock.Today()
	epoch, err := s.epochs.GetEpoch(ctx, projectID)
	if err != nil {
		return nil, err
	}

	cls := Classify(r, epoch.Start, today)

	var (
		core *CoreResult
		live *LiveResult
	)
	g, gctx := errgroup.WithContext(ctx)
	if cls.HasCore {
		g.Go(func() error {
			res, err := s.core.Fetch(gctx, projectID, funnelID, *cls.CoreRange)
			if err != nil {
				return err
			}
			core = res
			return nil
		})
	}
	if cls.HasLive {
		g.Go(func() error {
			res, err := s.live.FetchDay(gctx, projectID, funnelID, today, "display")
			if err != nil {
				return err
			}
			live = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &models.TimeAwareResult{
		ProjectID:      projectID,
		FunnelID:       funnelID,
		Classification: cls,
		CoreData:       []models.DailyFinancialRecord{},
		LiveData:       []models.LiveRecord{},
		CombinedData:   []models.FinancialRow{},
		Mode:           cls.Mode,
		TrustLevel:     cls.TrustLevel,
		GeneratedAt:    s.clock.Now(),
	}

	if core != nil {
		for _, rec := range core.Records {
			// Today belongs to the Live layer.
			if !rec.EconomicDay.Before(today) {
				result.QuarantinedRows++
				continue
			}
			result.CoreData = append(result.CoreData, rec)
		}
		result.QuarantinedRows += core.Quarantined
	}
	if live != nil {
		result.LiveData = append(result.LiveData, live.Records...)
		result.QuarantinedRows += live.Quarantined
	}

	for _, rec := range result.CoreData {
		result.CombinedData = append(result.CombinedData, rec.Row())
	}
	for _, rec := range result.LiveData {
		result.CombinedData = append(result.CombinedData, rec.Row())
	}

	return result, nil
}

// GetTimeAwareSummary reduces GetTimeAwareFinancials to totals.
func (s *Service) GetTimeAwareSummary(ctx context.Context, projectID string, r models.DateRange, funnelID *string) (*models.FinancialSummary, error) {
	res, err := s.GetTimeAwareFinancials(ctx, projectID, r, funnelID)
	if err != nil {
		return nil, err
	}
	summary := Summarize(res)
	return &summary, nil
}

// GetAISafeFinancials returns Core records no newer than yesterday and no
// older than the epoch. An empty clamped range yields an empty result.
// Every call is audited.
func (s *Service) GetAISafeFinancials(ctx context.Context, projectID string, r models.DateRange, funnelID *string, purpose string) (*models.AISafeResult, error) {
	ctx, span := s.tracer.Start(ctx, "finance.GetAISafeFinancials", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.String("purpose", purpose),
	))
	defer span.End()

	result, clamped, err := s.aiSafe(ctx, projectID, r, funnelID, purpose)

	entry := models.AuditEntry{
		ProjectID: projectID,
		Operation: "ai_safe_financials",
		Purpose:   purpose,
		Source:    models.DataSourceCore,
		Range:     clamped,
		Success:   err == nil,
		CreatedAt: s.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		entry.RecordCount = len(result.Data)
		span.SetAttributes(attribute.Int("finance.core_records", len(result.Data)))
	}
	recordAudit(ctx, s.audit, s.logger, entry)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) aiSafe(ctx context.Context, projectID string, r models.DateRange, funnelID *string, purpose string) (*models.AISafeResult, *models.DateRange, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, nil, ErrInvalidProject
	}
	if !r.Start.IsValid() || !r.End.IsValid() {
		return nil, nil, fmt.Errorf("%w: dates must be valid calendar days", ErrInvalidRange)
	}

	result := &models.AISafeResult{
		ProjectID: projectID,
		FunnelID:  funnelID,
		Data:      []models.DailyFinancialRecord{},
		IsAISafe:  true,
		Requested: r,
		Purpose:   purpose,
	}

	today := s.clock.Today()
	epoch, err := s.epochs.GetEpoch(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	clamped, ok := AISafeRange(r, epoch.Start, today)
	if !ok {
		return result, nil, nil
	}
	result.DateRange = &clamped

	core, err := s.core.Fetch(ctx, projectID, funnelID, clamped)
	if err != nil {
		return nil, &clamped, err
	}
	for _, rec := range core.Records {
		if !rec.EconomicDay.Before(today) || rec.DataSource != models.DataSourceCore {
			continue
		}
		result.Data = append(result.Data, rec)
	}
	return result, &clamped, nil
}

// GetRevenueTrend returns a moving average over AI-safe Core net revenue.
func (s *Service) GetRevenueTrend(ctx context.Context, projectID string, r models.DateRange, funnelID *string, period int) ([]models.TrendPoint, error) {
	safe, err := s.GetAISafeFinancials(ctx, projectID, r, funnelID, "revenue_trend")
	if err != nil {
		return nil, err
	}
	return RevenueTrend(safe.Data, period)
}

// Summarize totals a time-aware result. ROAS and CPA stay nil when their
// denominators are zero.
func Summarize(res *models.TimeAwareResult) models.FinancialSummary {
	sum := models.FinancialSummary{
		ProjectID:       res.ProjectID,
		FunnelID:        res.FunnelID,
		Requested:       res.Classification.Requested,
		Mode:            res.Mode,
		TrustLevel:      res.TrustLevel,
		AISafe:          res.TrustLevel.AutomationSafe(),
		IsEstimated:     len(res.LiveData) > 0,
		DataAvailable:   len(res.CoreData)+len(res.LiveData) > 0,
		QuarantinedRows: res.QuarantinedRows,
	}

	coreDays := make(map[civil.Date]struct{})
	for _, rec := range res.CoreData {
		sum.CoreRevenue = sum.CoreRevenue.Add(rec.NetRevenue)
		sum.CoreGross = sum.CoreGross.Add(rec.GrossRevenue)
		sum.CorePlatformFee = sum.CorePlatformFee.Add(rec.PlatformFees)
		sum.TotalSpend = sum.TotalSpend.Add(rec.AdSpend)
		sum.TotalSales += rec.SalesCount
		coreDays[rec.EconomicDay] = struct{}{}
	}

	liveDays := make(map[civil.Date]struct{})
	for _, rec := range res.LiveData {
		sum.LiveRevenue = sum.LiveRevenue.Add(rec.Revenue)
		sum.TotalSpend = sum.TotalSpend.Add(rec.AdSpend)
		sum.TotalSales += rec.SalesCount
		liveDays[rec.EconomicDay] = struct{}{}
	}

	sum.CoreDays = len(coreDays)
	sum.LiveDays = len(liveDays)
	sum.TotalRevenue = sum.CoreRevenue.Add(sum.LiveRevenue)
	sum.TotalProfit = models.DeriveProfit(sum.TotalRevenue, sum.TotalSpend)
	sum.ROAS = models.DeriveROAS(sum.TotalRevenue, sum.TotalSpend)
	if sum.TotalSales > 0 {
		cpa := sum.TotalSpend.Div(decimal.NewFromInt(sum.TotalSales))
		sum.CPA = &cpa
	}

	return sum
}

func validateRequest(projectID string, r models.DateRange) error {
	if strings.TrimSpace(projectID) == "" {
		return ErrInvalidProject
	}
	// An end before start is not an error; Classify reports it as unavailable.
	if !r.Start.IsValid() || !r.End.IsValid() {
		return fmt.Errorf("%w: dates must be valid calendar days", ErrInvalidRange)
	}
	return nil
}
