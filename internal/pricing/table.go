package pricing

import (
	"github.com/theirongolddev/tiercost/internal/model"
)

// RateRow is one (category, start, rate) line of a flat rate table.
type RateRow struct {
	Category model.Category
	Start    float64
	Rate     float64
}

// DefaultRateRows is the published price list, in tier order per category.
var DefaultRateRows = []RateRow{
	{model.PropertiesPosted, 0, 0.000005},
	{model.PropertiesPosted, 500_000, 0.000003},
	{model.PropertiesPosted, 10_000_000, 0.0000008},
	{model.PropertiesPosted, 500_000_000, 0.0000002},
	{model.DatumQueried, 0, 0.0000001},
	{model.DatumQueried, 10_000_000, 0.00000004},
	{model.DatumQueried, 1_000_000_000, 0.000000004},
	{model.DatumQueried, 100_000_000_000, 0.000000001},
	{model.DatumDaysStored, 0, 0.00000005},
	{model.DatumDaysStored, 10_000_000, 0.00000001},
	{model.DatumDaysStored, 1_000_000_000, 0.000000003},
	{model.DatumDaysStored, 100_000_000_000, 0.000000002},
	{model.OCPPChargers, 0, 2},
	{model.OCPPChargers, 250, 1},
	{model.OCPPChargers, 12_500, 0.5},
	{model.OCPPChargers, 500_000, 0.3},
	{model.OSCPCapacityGroups, 0, 50},
	{model.OSCPCapacityGroups, 30, 30},
	{model.OSCPCapacityGroups, 100, 15},
	{model.OSCPCapacityGroups, 300, 10},
	{model.DNP3DataPoints, 0, 1},
	{model.DNP3DataPoints, 20, 0.6},
	{model.DNP3DataPoints, 100, 0.4},
	{model.DNP3DataPoints, 500, 0.2},
}

// RateTable maps each category to its schedule. It is built once and only read afterwards.
type RateTable struct {
	schedules map[model.Category]Schedule
}

// NewRateTable groups rows by category, preserving row order within a
// category, and validates every resulting schedule.
func NewRateTable(rows []RateRow) (RateTable, error) {
	grouped := make(map[model.Category][]Breakpoint)
	var order []model.Category
	for _, r := range rows {
		if _, ok := grouped[r.Category]; !ok {
			order = append(order, r.Category)
		}
		grouped[r.Category] = append(grouped[r.Category], Breakpoint{Start: r.Start, Rate: r.Rate})
	}

	schedules := make(map[model.Category]Schedule, len(grouped))
	for _, c := range order {
		s, err := NewSchedule(c, grouped[c])
		if err != nil {
			return RateTable{}, err
		}
		schedules[c] = s
	}
	return RateTable{schedules: schedules}, nil
}

// DefaultRateTable returns the table built from DefaultRateRows.
func DefaultRateTable() RateTable {
	t, err := NewRateTable(DefaultRateRows)
	if err != nil {
		panic(err)
	}
	return t
}

// WithSchedules returns a copy of t with the given schedules replacing
// (or adding) their categories.
func (t RateTable) WithSchedules(overrides ...Schedule) RateTable {
	out := make(map[model.Category]Schedule, len(t.schedules)+len(overrides))
	for c, s := range t.schedules {
		out[c] = s
	}
	for _, s := range overrides {
		out[s.Category()] = s
	}
	return RateTable{schedules: out}
}

// Schedule returns the schedule for c.
func (t RateTable) Schedule(c model.Category) (Schedule, bool) {
	s, ok := t.schedules[c]
	return s, ok
}

// Require returns the schedule for c or a ConfigurationError if it is missing.
func (t RateTable) Require(c model.Category) (Schedule, error) {
	s, ok := t.schedules[c]
	if !ok {
		return Schedule{}, configErrorf(c, "no schedule configured")
	}
	return s, nil
}

// Categories returns the configured categories in display order.
func (t RateTable) Categories() []model.Category {
	var out []model.Category
	for _, c := range model.Categories {
		if _, ok := t.schedules[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// VisibleCategories returns the categories whose rate tables should be shown:
// every base category, and add-ons only while enabled in usage.
func (t RateTable) VisibleCategories(usage model.UsageConfiguration) []model.Category {
	var out []model.Category
	for _, c := range t.Categories() {
		if a, ok := usage.AddOn(c); ok && !a.Enabled {
			continue
		}
		out = append(out, c)
	}
	return out
}
