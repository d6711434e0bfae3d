// Package export renders time-aware financial results as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/irfndi/funnel-finance-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetCore    = "Core"
	SheetLive    = "Live"
	SheetSummary = "Summary"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	liveNotice = "Live figures are provisional estimates for today and must not drive automated decisions."
)

var (
	coreHeader = []interface{}{"economic_day", "funnel_id", "gross_revenue", "platform_fees", "net_revenue", "ad_spend", "profit", "roas", "sales_count", "data_source", "is_estimated"}
	liveHeader = []interface{}{"economic_day", "funnel_id", "revenue", "ad_spend", "profit", "roas", "sales_count", "data_source", "is_estimated"}
)

// WriteTimeAwareWorkbook writes res and sum to w as an XLSX workbook with a
// Core, Live and Summary sheet. Every data row is labelled with its source.
func WriteTimeAwareWorkbook(w io.Writer, res *models.TimeAwareResult, sum *models.FinancialSummary) error {
	if res == nil || sum == nil {
		return fmt.Errorf("export: result and summary are required")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCore); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetLive, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := writeCore(f, res.CoreData); err != nil {
		return err
	}
	if err := writeLive(f, res.LiveData); err != nil {
		return err
	}
	if err := writeSummary(f, sum); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeCore(f *excelize.File, records []models.DailyFinancialRecord) error {
	if err := setRow(f, SheetCore, 1, coreHeader); err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{
			r.EconomicDay.String(),
			optional(r.FunnelID),
			money(r.GrossRevenue),
			money(r.PlatformFees),
			money(r.NetRevenue),
			money(r.AdSpend),
			money(r.Profit),
			ratio(r.ROAS),
			r.SalesCount,
			string(r.DataSource),
			r.IsEstimated,
		}
		if err := setRow(f, SheetCore, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeLive(f *excelize.File, records []models.LiveRecord) error {
	if err := setRow(f, SheetLive, 1, []interface{}{liveNotice}); err != nil {
		return err
	}
	if err := setRow(f, SheetLive, 2, liveHeader); err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{
			r.EconomicDay.String(),
			optional(r.FunnelID),
			money(r.Revenue),
			money(r.AdSpend),
			money(r.Profit),
			ratio(r.ROAS),
			r.SalesCount,
			string(r.DataSource),
			r.IsEstimated,
		}
		if err := setRow(f, SheetLive, i+3, row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, s *models.FinancialSummary) error {
	rows := [][]interface{}{
		{"metric", "value"},
		{"project_id", s.ProjectID},
		{"funnel_id", optional(s.FunnelID)},
		{"start_date", s.Requested.Start.String()},
		{"end_date", s.Requested.End.String()},
		{"mode", string(s.Mode)},
		{"trust_level", string(s.TrustLevel)},
		{"is_estimated", s.IsEstimated},
		{"ai_safe", s.AISafe},
		{"total_revenue", money(s.TotalRevenue)},
		{"core_revenue", money(s.CoreRevenue)},
		{"live_revenue", money(s.LiveRevenue)},
		{"total_spend", money(s.TotalSpend)},
		{"total_profit", money(s.TotalProfit)},
		{"total_sales", s.TotalSales},
		{"roas", ratio(s.ROAS)},
		{"cpa", ratio(s.CPA)},
		{"core_days", s.CoreDays},
		{"live_days", s.LiveDays},
		{"quarantined_rows", s.QuarantinedRows},
	}
	for i, row := range rows {
		if err := setRow(f, SheetSummary, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// ratio leaves undefined ratios as blank cells.
func ratio(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
