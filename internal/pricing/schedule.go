// Package pricing holds tier schedules and prices usage against them.
package pricing

import (
	"math"

	"github.com/theirongolddev/tiercost/internal/model"
)

// Breakpoint is the per-unit rate charged from Start up to the next breakpoint.
type Breakpoint struct {
	Start float64 `json:"start" toml:"start"`
	Rate  float64 `json:"rate" toml:"rate"`
}

// Schedule is a validated, immutable tier schedule for one category.
type Schedule struct {
	category model.Category
	tiers    []Breakpoint
}

// NewSchedule validates tiers and returns a Schedule owning a copy of them.
// Tiers must be non-empty, start at 0 and be strictly ascending by Start.
func NewSchedule(category model.Category, tiers []Breakpoint) (Schedule, error) {
	if len(tiers) == 0 {
		return Schedule{}, configErrorf(category, "schedule has no tiers")
	}
	for i, t := range tiers {
		if !finiteNonNegative(t.Start) {
			return Schedule{}, configErrorf(category, "tier %d start %v is not a non-negative number", i+1, t.Start)
		}
		if !finiteNonNegative(t.Rate) {
			return Schedule{}, configErrorf(category, "tier %d rate %v is not a non-negative number", i+1, t.Rate)
		}
		if i > 0 && t.Start <= tiers[i-1].Start {
			return Schedule{}, configErrorf(category, "tier %d start %v is not above tier %d start %v",
				i+1, t.Start, i, tiers[i-1].Start)
		}
	}
	if tiers[0].Start != 0 {
		return Schedule{}, configErrorf(category, "first tier starts at %v, want 0", tiers[0].Start)
	}

	own := make([]Breakpoint, len(tiers))
	copy(own, tiers)
	return Schedule{category: category, tiers: own}, nil
}

// MustSchedule is NewSchedule for static tables; it panics on a bad table.
func MustSchedule(category model.Category, tiers []Breakpoint) Schedule {
	s, err := NewSchedule(category, tiers)
	if err != nil {
		panic(err)
	}
	return s
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Category returns the category the schedule prices.
func (s Schedule) Category() model.Category {
	return s.category
}

// Len returns the number of tiers.
func (s Schedule) Len() int {
	return len(s.tiers)
}

// Tiers returns a copy of the breakpoints.
func (s Schedule) Tiers() []Breakpoint {
	out := make([]Breakpoint, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// Price computes the cost of usage against the schedule.
//
// Each step consumes min(remaining, next.Start) units at the previous tier's
// rate; whatever is left after the last breakpoint is charged at the top
// tier's rate. No rounding is applied.
func (s Schedule) Price(usage float64) float64 {
	if len(s.tiers) == 0 {
		return 0
	}
	var cost float64
	remaining := usage
	prev := s.tiers[0]
	for i := 1; i < len(s.tiers) && remaining > 0; i++ {
		t := s.tiers[i]
		span := math.Min(remaining, t.Start)
		cost += span * prev.Rate
		remaining -= span
		prev = t
	}
	cost += remaining * prev.Rate
	return cost
}

// Price prices usage against schedule.
func Price(usage float64, schedule Schedule) float64 {
	return schedule.Price(usage)
}
