package finance

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/irfndi/funnel-finance-go/internal/models"
	"github.com/shopspring/decimal"
)

// RevenueTrend computes a simple moving average of daily net revenue.
// Records on the same day are summed; missing days are not zero-filled.
// Fewer days than period yields no points.
func RevenueTrend(core []models.DailyFinancialRecord, period int) ([]models.TrendPoint, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: trend period must be positive, got %d", ErrInvalidRange, period)
	}

	byDay := make(map[civil.Date]decimal.Decimal)
	for _, rec := range core {
		if rec.DataSource != models.DataSourceCore {
			continue
		}
		byDay[rec.EconomicDay] = byDay[rec.EconomicDay].Add(rec.NetRevenue)
	}

	days := make([]civil.Date, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	points := []models.TrendPoint{}
	if len(days) < period {
		return points, nil
	}

	values := make([]float64, len(days))
	for i, d := range days {
		values[i] = byDay[d].InexactFloat64()
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	averages := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))

	// The first average lines up with the period-th day.
	offset := len(days) - len(averages)
	for i, avg := range averages {
		d := days[offset+i]
		points = append(points, models.TrendPoint{
			EconomicDay:   d,
			NetRevenue:    byDay[d],
			MovingAverage: decimal.NewFromFloat(avg).Round(2),
		})
	}
	return points, nil
}
