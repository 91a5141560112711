package pricing

import (
	"github.com/theirongolddev/tiercost/internal/model"
)

// DisplayUnit describes how a category's per-unit rate is shown.
type DisplayUnit struct {
	// Millions is the number of millions of units the rate is quoted per;
	// zero means the rate is quoted per single unit ("each").
	Millions float64
	Label    string
}

// DisplayUnitFor returns the display unit for c.
func DisplayUnitFor(c model.Category) DisplayUnit {
	switch {
	case c.IsAddOn():
		return DisplayUnit{Label: "each"}
	case c == model.PropertiesPosted:
		return DisplayUnit{Millions: 1, Label: "1 million"}
	case c == model.DatumQueried:
		return DisplayUnit{Millions: 10, Label: "10 million"}
	default:
		return DisplayUnit{Millions: 100, Label: "100 million"}
	}
}

// Scale converts a per-unit rate to the display unit.
func (u DisplayUnit) Scale(rate float64) float64 {
	if u.Millions == 0 {
		return rate
	}
	return rate * u.Millions * 1_000_000
}

// TierInfo is one row of a rate table display.
type TierInfo struct {
	Index       int      `json:"tier"`
	Start       float64  `json:"start"`
	Rate        float64  `json:"rate"`
	DisplayRate float64  `json:"display_rate"`
	Unit        string   `json:"unit"`
	MaxCount    *float64 `json:"maximum_count,omitempty"`
	MaxCost     *float64 `json:"maximum_cost,omitempty"`
}

// Breakdown lists the tiers with display rates and per-tier capacity.
// The top tier is unbounded and has no MaxCount or MaxCost.
func (s Schedule) Breakdown() []TierInfo {
	unit := DisplayUnitFor(s.category)
	out := make([]TierInfo, len(s.tiers))
	for i, t := range s.tiers {
		info := TierInfo{
			Index:       i + 1,
			Start:       t.Start,
			Rate:        t.Rate,
			DisplayRate: unit.Scale(t.Rate),
			Unit:        unit.Label,
		}
		if i+1 < len(s.tiers) {
			maxCount := s.tiers[i+1].Start - t.Start
			maxCost := maxCount * t.Rate
			info.MaxCount = &maxCount
			info.MaxCost = &maxCost
		}
		out[i] = info
	}
	return out
}

// PriceTierSchedule returns the display breakdown of schedule.
func PriceTierSchedule(schedule Schedule) []TierInfo {
	return schedule.Breakdown()
}

// CategoryRates is a labelled breakdown for one category.
type CategoryRates struct {
	Category model.Category `json:"category"`
	Label    string         `json:"label"`
	Tiers    []TierInfo     `json:"tiers"`
}

// Breakdowns returns the breakdown of each listed category present in t.
func (t RateTable) Breakdowns(categories []model.Category) []CategoryRates {
	out := make([]CategoryRates, 0, len(categories))
	for _, c := range categories {
		s, ok := t.schedules[c]
		if !ok {
			continue
		}
		out = append(out, CategoryRates{Category: c, Label: c.Label(), Tiers: s.Breakdown()})
	}
	return out
}

// Position reports the 1-based tier whose start usage has reached and how far
// usage has travelled through that tier's span. The top tier reports 1.
func (s Schedule) Position(usage float64) (tier int, fill float64) {
	if len(s.tiers) == 0 {
		return 0, 0
	}
	i := 0
	for i+1 < len(s.tiers) && usage >= s.tiers[i+1].Start {
		i++
	}
	if i+1 == len(s.tiers) {
		return i + 1, 1
	}
	span := s.tiers[i+1].Start - s.tiers[i].Start
	fill = (usage - s.tiers[i].Start) / span
	if fill < 0 {
		fill = 0
	}
	return i + 1, fill
}
