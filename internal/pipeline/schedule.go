package pipeline

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pricing"
)

// DefaultMonths is the default projection horizon.
const DefaultMonths = 60

// MaxMonths is the longest horizon the front ends accept.
const MaxMonths = 1200

// CheckMonths rejects a horizon outside 0..MaxMonths.
func CheckMonths(n int) error {
	if n < 0 || n > MaxMonths {
		return fmt.Errorf("months must be between 0 and %d, got %d", MaxMonths, n)
	}
	return nil
}

// ComputeMonthlySchedule projects cfg over numMonths months and prices every
// category against rates. Month totals are rounded to cents before being
// added to the running total. A negative numMonths yields no rows.
func ComputeMonthlySchedule(cfg model.UsageConfiguration, rates pricing.RateTable, numMonths int) ([]model.MonthRow, error) {
	schedules := make(map[model.Category]pricing.Schedule, len(model.Categories))
	for _, c := range model.Categories {
		s, err := rates.Require(c)
		if err != nil {
			return nil, err
		}
		schedules[c] = s
	}

	if numMonths < 0 {
		numMonths = 0
	}
	p := NewProjector(cfg)
	rows := make([]model.MonthRow, 0, min(numMonths, MaxMonths))
	var running float64

	for m := 1; m <= numMonths; m++ {
		row := model.MonthRow{
			MonthIndex: m,
			Year:       int(math.Ceil(float64(m) / 12)),
			Usage:      make(map[model.Category]float64, len(model.Categories)),
			Costs:      make(map[model.Category]float64, len(model.Categories)),
		}

		var sum float64
		for _, c := range model.Categories {
			usage := p.Usage(c, m)
			cost := 0.0
			if p.Billable(c) {
				cost = schedules[c].Price(usage)
			}
			row.Usage[c] = usage
			row.Costs[c] = cost
			sum += cost
		}

		row.MonthTotalCost = Round2(sum)
		running += row.MonthTotalCost
		row.RunningTotalCost = running
		rows = append(rows, row)
	}
	return rows, nil
}

// Round2 rounds v to cents the way Number.prototype.toFixed(2) does: the
// exact binary value is rounded, with ties going away from zero.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return Exact(v).Round(2).InexactFloat64()
}

// Exact returns the decimal expansion of v's binary value, so rounding
// matches what a browser number formatter shows. v must be finite.
func Exact(v float64) decimal.Decimal {
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 40, 64))
	if err != nil {
		return decimal.NewFromFloat(v)
	}
	return d
}

// VisibleRows filters rows for display. With allMonths false only the first
// month and each year-end month are kept.
func VisibleRows(rows []model.MonthRow, allMonths bool) []model.MonthRow {
	if allMonths {
		return rows
	}
	out := make([]model.MonthRow, 0, len(rows)/12+1)
	for _, r := range rows {
		if r.MonthIndex == 1 || r.YearEnd() {
			out = append(out, r)
		}
	}
	return out
}
