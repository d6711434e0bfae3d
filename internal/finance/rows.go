package finance

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/irfndi/funnel-finance-go/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var rowValidator = newRowValidator()

func newRowValidator() *validator.Validate {
	v := validator.New()
	// nonnegative: a decimal string that is not below zero.
	_ = v.RegisterValidation("nonnegative", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return !d.IsNegative()
	})
	return v
}

// coreRow is a raw financial_core_daily row as scanned from the store.
type coreRow struct {
	FunnelID     pgtype.Text
	EconomicDay  pgtype.Date
	GrossRevenue pgtype.Text
	PlatformFees pgtype.Text
	NetRevenue   pgtype.Text
	AdSpend      pgtype.Text
	SalesCount   pgtype.Int8
}

var coreColumns = []string{"funnel_id", "economic_day", "gross_revenue", "platform_fees", "net_revenue", "ad_spend", "sales_count"}

func scanCoreRow(rows pgx.Rows) (coreRow, error) {
	var r coreRow
	err := rows.Scan(&r.FunnelID, &r.EconomicDay, &r.GrossRevenue, &r.PlatformFees, &r.NetRevenue, &r.AdSpend, &r.SalesCount)
	return r, err
}

// coreCandidate is a coreRow with every field that must be present checked.
type coreCandidate struct {
	EconomicDay  *civil.Date `validate:"required"`
	GrossRevenue *string     `validate:"required,numeric"`
	PlatformFees *string     `validate:"required,numeric"`
	NetRevenue   *string     `validate:"required,numeric"`
	AdSpend      *string     `validate:"required,numeric,nonnegative"`
	SalesCount   *int64      `validate:"required,gte=0"`
}

// toRecord validates the row and derives profit and ROAS. Rows outside
// window are rejected.
func (r coreRow) toRecord(projectID string, window models.DateRange) (models.DailyFinancialRecord, error) {
	c := coreCandidate{
		EconomicDay:  datePtr(r.EconomicDay),
		GrossRevenue: textPtr(r.GrossRevenue),
		PlatformFees: textPtr(r.PlatformFees),
		NetRevenue:   textPtr(r.NetRevenue),
		AdSpend:      textPtr(r.AdSpend),
		SalesCount:   int8Ptr(r.SalesCount),
	}
	if err := rowValidator.Struct(c); err != nil {
		return models.DailyFinancialRecord{}, err
	}
	if !window.Contains(*c.EconomicDay) {
		return models.DailyFinancialRecord{}, fmt.Errorf("economic day %s outside %s..%s", c.EconomicDay, window.Start, window.End)
	}

	net := decimal.RequireFromString(*c.NetRevenue)
	spend := decimal.RequireFromString(*c.AdSpend)

	return models.DailyFinancialRecord{
		ProjectID:    projectID,
		FunnelID:     textPtr(r.FunnelID),
		EconomicDay:  *c.EconomicDay,
		GrossRevenue: decimal.RequireFromString(*c.GrossRevenue),
		PlatformFees: decimal.RequireFromString(*c.PlatformFees),
		NetRevenue:   net,
		AdSpend:      spend,
		Profit:       models.DeriveProfit(net, spend),
		ROAS:         models.DeriveROAS(net, spend),
		SalesCount:   *c.SalesCount,
		DataSource:   models.DataSourceCore,
		IsEstimated:  false,
	}, nil
}

// liveRow is a raw financial_live_today row.
type liveRow struct {
	FunnelID    pgtype.Text
	EconomicDay pgtype.Date
	Revenue     pgtype.Text
	AdSpend     pgtype.Text
	SalesCount  pgtype.Int8
}

var liveColumns = []string{"funnel_id", "economic_day", "revenue", "ad_spend", "sales_count"}

func scanLiveRow(rows pgx.Rows) (liveRow, error) {
	var r liveRow
	err := rows.Scan(&r.FunnelID, &r.EconomicDay, &r.Revenue, &r.AdSpend, &r.SalesCount)
	return r, err
}

type liveCandidate struct {
	EconomicDay *civil.Date `validate:"required"`
	Revenue     *string     `validate:"required,numeric"`
	AdSpend     *string     `validate:"required,numeric,nonnegative"`
	SalesCount  *int64      `validate:"required,gte=0"`
}

func (r liveRow) toRecord(projectID string, today civil.Date) (models.LiveRecord, error) {
	c := liveCandidate{
		EconomicDay: datePtr(r.EconomicDay),
		Revenue:     textPtr(r.Revenue),
		AdSpend:     textPtr(r.AdSpend),
		SalesCount:  int8Ptr(r.SalesCount),
	}
	if err := rowValidator.Struct(c); err != nil {
		return models.LiveRecord{}, err
	}
	if *c.EconomicDay != today {
		return models.LiveRecord{}, fmt.Errorf("live row for %s is not today (%s)", c.EconomicDay, today)
	}

	revenue := decimal.RequireFromString(*c.Revenue)
	spend := decimal.RequireFromString(*c.AdSpend)

	return models.LiveRecord{
		ProjectID:   projectID,
		FunnelID:    textPtr(r.FunnelID),
		EconomicDay: today,
		Revenue:     revenue,
		AdSpend:     spend,
		Profit:      models.DeriveProfit(revenue, spend),
		ROAS:        models.DeriveROAS(revenue, spend),
		SalesCount:  *c.SalesCount,
		DataSource:  models.DataSourceLive,
		IsEstimated: true,
	}, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func int8Ptr(i pgtype.Int8) *int64 {
	if !i.Valid {
		return nil
	}
	v := i.Int64
	return &v
}

func datePtr(d pgtype.Date) *civil.Date {
	if !d.Valid || d.InfinityModifier != pgtype.Finite {
		return nil
	}
	cd := civil.DateOf(d.Time)
	return &cd
}
