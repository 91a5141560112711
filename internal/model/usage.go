package model

import (
	"fmt"
	"math"
)

// AddOn is a flat per-month add-on quantity with an on/off toggle.
// The toggle gates cost only; the count is always reported.
type AddOn struct {
	Count   float64 `json:"count" toml:"count"`
	Enabled bool    `json:"enabled" toml:"enabled"`
}

// UsageConfiguration is one snapshot of the numeric inputs a recalculation runs on.
// All values are assumed finite and non-negative.
type UsageConfiguration struct {
	NodeCount                    float64 `json:"node_count"`
	SourcesPerNode               float64 `json:"sources_per_node"`
	DatumPerSourcePerHour        float64 `json:"datum_per_source_per_hour"`
	PropertiesPerDatum           float64 `json:"properties_per_datum"`
	QueriedDatumPerSourcePerHour float64 `json:"queried_datum_per_source_per_hour"`

	// Pinned derived values; nil means derive from the base rates.
	DatumPerHour      *float64 `json:"datum_per_hour,omitempty"`
	PropertiesPerHour *float64 `json:"properties_per_hour,omitempty"`

	OCPPChargers       AddOn `json:"ocpp_chargers"`
	OSCPCapacityGroups AddOn `json:"oscp_capacity_groups"`
	DNP3DataPoints     AddOn `json:"dnp3_data_points"`
}

// AddOn returns the add-on settings for c. ok is false for non add-on categories.
func (u UsageConfiguration) AddOn(c Category) (AddOn, bool) {
	switch c {
	case OCPPChargers:
		return u.OCPPChargers, true
	case OSCPCapacityGroups:
		return u.OSCPCapacityGroups, true
	case DNP3DataPoints:
		return u.DNP3DataPoints, true
	}
	return AddOn{}, false
}

// SetAddOnEnabled toggles the add-on for c. Non add-on categories are ignored.
func (u *UsageConfiguration) SetAddOnEnabled(c Category, enabled bool) {
	switch c {
	case OCPPChargers:
		u.OCPPChargers.Enabled = enabled
	case OSCPCapacityGroups:
		u.OSCPCapacityGroups.Enabled = enabled
	case DNP3DataPoints:
		u.DNP3DataPoints.Enabled = enabled
	}
}

// Float returns a pointer to v, for pinning derived fields.
func Float(v float64) *float64 {
	return &v
}

// Clone returns a copy of u that shares no pinned-value pointers with it.
func (u UsageConfiguration) Clone() UsageConfiguration {
	if u.DatumPerHour != nil {
		u.DatumPerHour = Float(*u.DatumPerHour)
	}
	if u.PropertiesPerHour != nil {
		u.PropertiesPerHour = Float(*u.PropertiesPerHour)
	}
	return u
}

// Validate reports the first field that is negative, NaN or infinite.
// Front ends call it before handing u to the engine.
func (u UsageConfiguration) Validate() error {
	fields := []struct {
		name string
		v    *float64
	}{
		{"node_count", &u.NodeCount},
		{"sources_per_node", &u.SourcesPerNode},
		{"datum_per_source_per_hour", &u.DatumPerSourcePerHour},
		{"properties_per_datum", &u.PropertiesPerDatum},
		{"queried_datum_per_source_per_hour", &u.QueriedDatumPerSourcePerHour},
		{"datum_per_hour", u.DatumPerHour},
		{"properties_per_hour", u.PropertiesPerHour},
		{"ocpp_chargers.count", &u.OCPPChargers.Count},
		{"oscp_capacity_groups.count", &u.OSCPCapacityGroups.Count},
		{"dnp3_data_points.count", &u.DNP3DataPoints.Count},
	}
	for _, f := range fields {
		if f.v == nil {
			continue
		}
		if v := *f.v; math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%s: must be a finite non-negative number, got %v", f.name, v)
		}
	}
	return nil
}
