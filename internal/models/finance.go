package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DataSource identifies which projection a figure was read from.
type DataSource string

const (
	// DataSourceCore is the reconciled historical ledger.
	DataSourceCore DataSource = "core"
	// DataSourceLive is the same-day provisional projection.
	DataSourceLive DataSource = "live"
)

// TrustMode describes how a requested range relates to the epoch and today.
type TrustMode string

const (
	ModeHistoricalOnly TrustMode = "historical-only"
	ModeMixed          TrustMode = "mixed"
	ModeLiveOnly       TrustMode = "live-only"
)

// TrustLevel tells consumers whether figures may drive automated decisions.
type TrustLevel string

const (
	// TrustReconciled means every figure comes from the Core ledger.
	TrustReconciled TrustLevel = "reconciled"
	// TrustMixed means Core and Live figures are combined; display only.
	TrustMixed TrustLevel = "mixed"
	// TrustEstimated means every figure is a Live estimate; display only.
	TrustEstimated TrustLevel = "estimated"
	// TrustUnavailable means the range holds no reconciled data.
	TrustUnavailable TrustLevel = "unavailable"
)

// AutomationSafe reports whether figures at this level may feed
// optimization or AI analysis.
func (l TrustLevel) AutomationSafe() bool {
	return l == TrustReconciled
}

// DateRange is an inclusive range of business days.
type DateRange struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// Valid reports whether End is not before Start.
func (r DateRange) Valid() bool {
	return !r.End.Before(r.Start)
}

// Contains reports whether d lies inside the range, boundaries included.
func (r DateRange) Contains(d civil.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns the number of calendar days in the range.
func (r DateRange) Days() int {
	if !r.Valid() {
		return 0
	}
	return r.End.DaysSince(r.Start) + 1
}

// DailyFinancialRecord is one reconciled (project, economic day[, funnel]) aggregate.
type DailyFinancialRecord struct {
	ProjectID    string           `json:"project_id"`
	FunnelID     *string          `json:"funnel_id,omitempty"`
	EconomicDay  civil.Date       `json:"economic_day"`
	GrossRevenue decimal.Decimal  `json:"gross_revenue"`
	PlatformFees decimal.Decimal  `json:"platform_fees"`
	NetRevenue   decimal.Decimal  `json:"net_revenue"`
	AdSpend      decimal.Decimal  `json:"ad_spend"`
	Profit       decimal.Decimal  `json:"profit"`
	ROAS         *decimal.Decimal `json:"roas"`
	SalesCount   int64            `json:"sales_count"`
	DataSource   DataSource       `json:"data_source"`
	IsEstimated  bool             `json:"is_estimated"`
}

// Row projects the record into the display shape.
func (r DailyFinancialRecord) Row() FinancialRow {
	return FinancialRow{
		FunnelID:    r.FunnelID,
		EconomicDay: r.EconomicDay,
		Revenue:     r.NetRevenue,
		AdSpend:     r.AdSpend,
		Profit:      r.Profit,
		ROAS:        r.ROAS,
		SalesCount:  r.SalesCount,
		DataSource:  r.DataSource,
		IsEstimated: r.IsEstimated,
	}
}

// LiveRecord is a provisional same-day total.
type LiveRecord struct {
	ProjectID   string           `json:"project_id"`
	FunnelID    *string          `json:"funnel_id,omitempty"`
	EconomicDay civil.Date       `json:"economic_day"`
	Revenue     decimal.Decimal  `json:"revenue"`
	AdSpend     decimal.Decimal  `json:"ad_spend"`
	Profit      decimal.Decimal  `json:"profit"`
	ROAS        *decimal.Decimal `json:"roas"`
	SalesCount  int64            `json:"sales_count"`
	DataSource  DataSource       `json:"data_source"`
	IsEstimated bool             `json:"is_estimated"`
}

// Row projects the record into the display shape.
func (r LiveRecord) Row() FinancialRow {
	return FinancialRow{
		FunnelID:    r.FunnelID,
		EconomicDay: r.EconomicDay,
		Revenue:     r.Revenue,
		AdSpend:     r.AdSpend,
		Profit:      r.Profit,
		ROAS:        r.ROAS,
		SalesCount:  r.SalesCount,
		DataSource:  r.DataSource,
		IsEstimated: r.IsEstimated,
	}
}

// FinancialRow is the display-only shape shared by Core and Live rows.
type FinancialRow struct {
	FunnelID    *string          `json:"funnel_id,omitempty"`
	EconomicDay civil.Date       `json:"economic_day"`
	Revenue     decimal.Decimal  `json:"revenue"`
	AdSpend     decimal.Decimal  `json:"ad_spend"`
	Profit      decimal.Decimal  `json:"profit"`
	ROAS        *decimal.Decimal `json:"roas"`
	SalesCount  int64            `json:"sales_count"`
	DataSource  DataSource       `json:"data_source"`
	IsEstimated bool             `json:"is_estimated"`
}

// DeriveProfit returns net revenue minus ad spend.
func DeriveProfit(netRevenue, adSpend decimal.Decimal) decimal.Decimal {
	return netRevenue.Sub(adSpend)
}

// DeriveROAS returns net revenue over ad spend, or nil when there was no spend.
func DeriveROAS(netRevenue, adSpend decimal.Decimal) *decimal.Decimal {
	if !adSpend.IsPositive() {
		return nil
	}
	roas := netRevenue.Div(adSpend)
	return &roas
}

// Classification is the outcome of comparing a range with the epoch and today.
type Classification struct {
	Requested      DateRange   `json:"requested"`
	Epoch          civil.Date  `json:"epoch"`
	Today          civil.Date  `json:"today"`
	Mode           TrustMode   `json:"mode"`
	TrustLevel     TrustLevel  `json:"trust_level"`
	HasCore        bool        `json:"has_core"`
	HasLive        bool        `json:"has_live"`
	CoreRange      *DateRange  `json:"core_range,omitempty"`
	LiveDay        *civil.Date `json:"live_day,omitempty"`
	LegacyExcluded bool        `json:"legacy_excluded"`
}

// TimeAwareResult is the request-scoped outcome of a time-aware read.
// CombinedData is for display only; trust-sensitive consumers read CoreData.
type TimeAwareResult struct {
	ProjectID       string                 `json:"project_id"`
	FunnelID        *string                `json:"funnel_id,omitempty"`
	Classification  Classification         `json:"classification"`
	CoreData        []DailyFinancialRecord `json:"core_data"`
	LiveData        []LiveRecord           `json:"live_data"`
	CombinedData    []FinancialRow         `json:"combined_data"`
	Mode            TrustMode              `json:"mode"`
	TrustLevel      TrustLevel             `json:"trust_level"`
	QuarantinedRows int                    `json:"quarantined_rows"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// FinancialSummary is a reduction over a TimeAwareResult.
type FinancialSummary struct {
	ProjectID       string           `json:"project_id"`
	FunnelID        *string          `json:"funnel_id,omitempty"`
	Requested       DateRange        `json:"requested"`
	TotalRevenue    decimal.Decimal  `json:"total_revenue"`
	TotalSpend      decimal.Decimal  `json:"total_spend"`
	TotalSales      int64            `json:"total_sales"`
	TotalProfit     decimal.Decimal  `json:"total_profit"`
	ROAS            *decimal.Decimal `json:"roas"`
	CPA             *decimal.Decimal `json:"cpa"`
	CoreRevenue     decimal.Decimal  `json:"core_revenue"`
	LiveRevenue     decimal.Decimal  `json:"live_revenue"`
	CoreGross       decimal.Decimal  `json:"core_gross_revenue"`
	CorePlatformFee decimal.Decimal  `json:"core_platform_fees"`
	CoreDays        int              `json:"core_days"`
	LiveDays        int              `json:"live_days"`
	Mode            TrustMode        `json:"mode"`
	TrustLevel      TrustLevel       `json:"trust_level"`
	IsEstimated     bool             `json:"is_estimated"`
	AISafe          bool             `json:"ai_safe"`
	DataAvailable   bool             `json:"data_available"`
	QuarantinedRows int              `json:"quarantined_rows"`
}

// AISafeResult holds Core-only figures cleared for automated consumers.
type AISafeResult struct {
	ProjectID string                 `json:"project_id"`
	FunnelID  *string                `json:"funnel_id,omitempty"`
	Data      []DailyFinancialRecord `json:"data"`
	IsAISafe  bool                   `json:"is_ai_safe"`
	Requested DateRange              `json:"requested"`
	DateRange *DateRange             `json:"date_range"`
	Purpose   string                 `json:"purpose"`
}

// TrendPoint is one point of a moving average over Core net revenue.
type TrendPoint struct {
	EconomicDay   civil.Date      `json:"economic_day"`
	NetRevenue    decimal.Decimal `json:"net_revenue"`
	MovingAverage decimal.Decimal `json:"moving_average"`
}

// EpochSettings is the per-project financial core configuration.
type EpochSettings struct {
	ProjectID              string     `json:"project_id" db:"project_id"`
	FinancialCoreStartDate civil.Date `json:"financial_core_start_date" db:"financial_core_start_date"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// AuditEntry records what a consumer read and whether it succeeded.
type AuditEntry struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ProjectID   string     `json:"project_id" db:"project_id"`
	Operation   string     `json:"operation" db:"operation"`
	Purpose     string     `json:"purpose" db:"purpose"`
	Source      DataSource `json:"source" db:"source"`
	Range       *DateRange `json:"range,omitempty"`
	Success     bool       `json:"success" db:"success"`
	RecordCount int        `json:"record_count" db:"record_count"`
	Error       string     `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
