// Package pipeline projects usage over a month horizon and prices it into a schedule.
package pipeline

import (
	"math"

	"github.com/theirongolddev/tiercost/internal/model"
)

// HoursPerMonth is the average month length used for every projection.
const HoursPerMonth = (24.0 * 365.0) / 12.0

// Projector derives per-hour and per-month usage from a configuration snapshot.
type Projector struct {
	cfg model.UsageConfiguration
}

// NewProjector returns a Projector for cfg.
func NewProjector(cfg model.UsageConfiguration) Projector {
	return Projector{cfg: cfg}
}

// DatumPerHour is the pinned value if set, else nodes × sources × datum per source.
func (p Projector) DatumPerHour() float64 {
	if p.cfg.DatumPerHour != nil {
		return *p.cfg.DatumPerHour
	}
	return p.cfg.NodeCount * p.cfg.SourcesPerNode * p.cfg.DatumPerSourcePerHour
}

// PropertiesPerHour is the pinned value if set, else DatumPerHour × properties per datum.
func (p Projector) PropertiesPerHour() float64 {
	if p.cfg.PropertiesPerHour != nil {
		return *p.cfg.PropertiesPerHour
	}
	return p.DatumPerHour() * p.cfg.PropertiesPerDatum
}

// PropertiesPostedPerMonth is flat across the horizon.
func (p Projector) PropertiesPostedPerMonth() float64 {
	return p.PropertiesPerHour() * HoursPerMonth
}

// QueriesPerMonth is flat across the horizon.
func (p Projector) QueriesPerMonth() float64 {
	return p.cfg.NodeCount * p.cfg.SourcesPerNode * p.cfg.QueriedDatumPerSourcePerHour * HoursPerMonth
}

// StoredDataCount is the cumulative datum-days stored after month monthIndex.
// Raw datum, hourly, daily and monthly aggregates all accumulate linearly
// with elapsed months; the sum is truncated to an integer.
func (p Projector) StoredDataCount(monthIndex int) float64 {
	m := float64(monthIndex)
	return math.Floor(p.DatumPerHour()*HoursPerMonth*m + // raw
		HoursPerMonth*m + // hour aggregates
		(HoursPerMonth/24)*m + // day aggregates
		m) // month aggregates
}

// AddOnCount returns the flat monthly quantity of an add-on regardless of its toggle.
func (p Projector) AddOnCount(c model.Category) float64 {
	a, _ := p.cfg.AddOn(c)
	return a.Count
}

// Usage returns the usage of category c in month monthIndex.
func (p Projector) Usage(c model.Category, monthIndex int) float64 {
	switch c {
	case model.PropertiesPosted:
		return p.PropertiesPostedPerMonth()
	case model.DatumQueried:
		return p.QueriesPerMonth()
	case model.DatumDaysStored:
		return p.StoredDataCount(monthIndex)
	default:
		return p.AddOnCount(c)
	}
}

// Billable reports whether category c contributes cost. Add-ons only count while enabled.
func (p Projector) Billable(c model.Category) bool {
	if a, ok := p.cfg.AddOn(c); ok {
		return a.Enabled
	}
	return true
}
