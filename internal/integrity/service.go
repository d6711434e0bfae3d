package integrity

import (
	"context"
	"time"

	"github.com/irfndi/funnel-finance-go/internal/database"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Config names the tables the report reads.
type Config struct {
	FunnelsTable string
	OffersTable  string
	PageSize     int
}

// DefaultConfig returns the standard table names and the largest page size.
func DefaultConfig() Config {
	return Config{
		FunnelsTable: "funnels",
		OffersTable:  "offer_mappings",
		PageSize:     database.MaxPageSize,
	}
}

// Service loads funnels and offers from the record store and analyzes them.
type Service struct {
	db     database.Querier
	cfg    Config
	logger *logging.StandardLogger
	tracer *telemetry.BusinessTracer
}

func NewService(db database.Querier, cfg Config, logger *logging.StandardLogger) *Service {
	return &Service{
		db:     db,
		cfg:    cfg,
		logger: logger,
		tracer: telemetry.NewBusinessTracer(),
	}
}

var (
	funnelColumns = []string{"id", "project_id", "name"}
	offerColumns  = []string{"id", "project_id", "funnel_id", "legacy_funnel_name", "product_name", "offer_name", "origin"}
)

// BuildReport reads every funnel and offer mapping and returns the integrity
// report. An empty projectID covers all projects.
func (s *Service) BuildReport(ctx context.Context, projectID string) (report *Report, err error) {
	ctx, span := s.tracer.TraceIntegrityCheck(ctx, projectID)
	defer func() { telemetry.FinishSpan(span, err) }()

	start := time.Now()
	funnels, err := database.FetchAll(ctx, s.db, s.query(s.cfg.FunnelsTable, funnelColumns, projectID), scanFunnel)
	if err != nil {
		return nil, err
	}
	offers, err := database.FetchAll(ctx, s.db, s.query(s.cfg.OffersTable, offerColumns, projectID), scanOffer)
	if err != nil {
		return nil, err
	}
	s.logger.LogDatabaseOperation("select", s.cfg.OffersTable, time.Since(start).Milliseconds(), int64(len(funnels)+len(offers)))

	report = Analyze(funnels, offers)
	report.ProjectID = projectID

	s.tracer.RecordIntegrityFindings(span, telemetry.IntegrityFindings{
		Funnels:         report.Totals.Funnels,
		Offers:          report.Totals.Offers,
		Issues:          report.Integrity.Issues(),
		DuplicateGroups: report.Duplicates.Groups,
	})
	s.logger.LogBusinessEvent("integrity_report", map[string]interface{}{
		"project_id":       projectID,
		"funnels":          report.Totals.Funnels,
		"offers":           report.Totals.Offers,
		"issues":           report.Integrity.Issues(),
		"duplicate_groups": report.Duplicates.Groups,
	})
	return report, nil
}

func (s *Service) query(table string, columns []string, projectID string) database.RangeQuery {
	q := database.RangeQuery{
		Source:   table,
		Columns:  columns,
		OrderBy:  []string{"id"},
		PageSize: s.cfg.PageSize,
	}
	if projectID != "" {
		q.Filters = []database.Filter{database.Eq("project_id", projectID)}
	}
	return q
}

func scanFunnel(rows pgx.Rows) (Funnel, error) {
	var id, project, name pgtype.Text
	if err := rows.Scan(&id, &project, &name); err != nil {
		return Funnel{}, err
	}
	return Funnel{ID: id.String, ProjectID: project.String, Name: name.String}, nil
}

func scanOffer(rows pgx.Rows) (Offer, error) {
	var id, project, funnel, legacy, product, offer, origin pgtype.Text
	if err := rows.Scan(&id, &project, &funnel, &legacy, &product, &offer, &origin); err != nil {
		return Offer{}, err
	}
	return Offer{
		ID:               id.String,
		ProjectID:        project.String,
		FunnelID:         funnel.String,
		LegacyFunnelName: legacy.String,
		ProductName:      product.String,
		OfferName:        offer.String,
		Origin:           origin.String,
	}, nil
}
