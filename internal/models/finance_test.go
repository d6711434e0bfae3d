package models

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2026, Month: time.January, Day: d}
}

func TestDeriveROAS(t *testing.T) {
	roas := DeriveROAS(decimal.NewFromInt(3000), decimal.NewFromInt(1000))
	require.NotNil(t, roas)
	assert.True(t, roas.Equal(decimal.NewFromInt(3)))

	assert.Nil(t, DeriveROAS(decimal.NewFromInt(3000), decimal.Zero))
	assert.Nil(t, DeriveROAS(decimal.NewFromInt(3000), decimal.NewFromInt(-5)))
}

func TestDeriveProfit(t *testing.T) {
	profit := DeriveProfit(decimal.RequireFromString("1250.50"), decimal.RequireFromString("300.25"))
	assert.Equal(t, "950.25", profit.String())
}

func TestDateRange(t *testing.T) {
	r := DateRange{Start: day(10), End: day(14)}

	assert.True(t, r.Valid())
	assert.Equal(t, 5, r.Days())
	assert.True(t, r.Contains(day(10)))
	assert.True(t, r.Contains(day(14)))
	assert.False(t, r.Contains(day(9)))
	assert.False(t, r.Contains(day(15)))

	single := DateRange{Start: day(3), End: day(3)}
	assert.True(t, single.Valid())
	assert.Equal(t, 1, single.Days())

	inverted := DateRange{Start: day(14), End: day(10)}
	assert.False(t, inverted.Valid())
	assert.Equal(t, 0, inverted.Days())
}

func TestTrustLevel_AutomationSafe(t *testing.T) {
	assert.True(t, TrustReconciled.AutomationSafe())
	assert.False(t, TrustMixed.AutomationSafe())
	assert.False(t, TrustEstimated.AutomationSafe())
	assert.False(t, TrustUnavailable.AutomationSafe())
}

func TestRecordRows(t *testing.T) {
	funnel := "f-1"
	core := DailyFinancialRecord{
		ProjectID:   "p",
		FunnelID:    &funnel,
		EconomicDay: day(5),
		NetRevenue:  decimal.NewFromInt(900),
		AdSpend:     decimal.NewFromInt(300),
		Profit:      decimal.NewFromInt(600),
		ROAS:        DeriveROAS(decimal.NewFromInt(900), decimal.NewFromInt(300)),
		SalesCount:  4,
		DataSource:  DataSourceCore,
	}
	row := core.Row()
	assert.Equal(t, DataSourceCore, row.DataSource)
	assert.False(t, row.IsEstimated)
	assert.True(t, row.Revenue.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, &funnel, row.FunnelID)

	live := LiveRecord{
		ProjectID:   "p",
		EconomicDay: day(6),
		Revenue:     decimal.NewFromInt(50),
		DataSource:  DataSourceLive,
		IsEstimated: true,
	}
	lrow := live.Row()
	assert.Equal(t, DataSourceLive, lrow.DataSource)
	assert.True(t, lrow.IsEstimated)
	assert.Nil(t, lrow.ROAS)
}

func TestDailyFinancialRecord_JSON(t *testing.T) {
	rec := DailyFinancialRecord{
		ProjectID:   "p",
		EconomicDay: day(5),
		NetRevenue:  decimal.RequireFromString("10.50"),
		DataSource:  DataSourceCore,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2026-01-05", decoded["economic_day"])
	assert.Equal(t, "10.5", decoded["net_revenue"])
	assert.Nil(t, decoded["roas"])
	assert.NotContains(t, decoded, "funnel_id")
}
