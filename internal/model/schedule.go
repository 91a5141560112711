package model

// MonthRow is one month of a projected schedule.
type MonthRow struct {
	MonthIndex       int                  `json:"month"`
	Year             int                  `json:"year"`
	Usage            map[Category]float64 `json:"usage"`
	Costs            map[Category]float64 `json:"costs"`
	MonthTotalCost   float64              `json:"month_total_cost"`
	RunningTotalCost float64              `json:"running_total_cost"`
}

// YearEnd reports whether the row closes a year (every 12th month).
func (r MonthRow) YearEnd() bool {
	return r.MonthIndex%12 == 0
}

// ScheduleSummary condenses a schedule for status displays and events.
type ScheduleSummary struct {
	Months         int     `json:"months"`
	FirstMonthCost float64 `json:"first_month_cost"`
	FirstYearCost  float64 `json:"first_year_cost"`
	FinalMonthCost float64 `json:"final_month_cost"`
	TotalCost      float64 `json:"total_cost"`
	AverageMonthly float64 `json:"average_monthly_cost"`
}

// Summarize derives a ScheduleSummary from rows.
func Summarize(rows []MonthRow) ScheduleSummary {
	s := ScheduleSummary{Months: len(rows)}
	if len(rows) == 0 {
		return s
	}
	s.FirstMonthCost = rows[0].MonthTotalCost
	last := rows[len(rows)-1]
	s.FinalMonthCost = last.MonthTotalCost
	s.TotalCost = last.RunningTotalCost
	yearIdx := 11
	if yearIdx >= len(rows) {
		yearIdx = len(rows) - 1
	}
	s.FirstYearCost = rows[yearIdx].RunningTotalCost
	s.AverageMonthly = s.TotalCost / float64(len(rows))
	return s
}
