// Package model defines domain types for tiercost usage and schedules.
package model

// Category identifies a billable usage dimension with its own tier schedule.
type Category string

// Billable categories.
const (
	PropertiesPosted   Category = "datum-props-in"
	DatumQueried       Category = "datum-out"
	DatumDaysStored    Category = "datum-days-stored"
	OCPPChargers       Category = "ocpp-chargers"
	OSCPCapacityGroups Category = "oscp-cap-groups"
	DNP3DataPoints     Category = "dnp3-data-points"
)

// Categories lists every category in display order.
var Categories = []Category{
	PropertiesPosted,
	DatumQueried,
	DatumDaysStored,
	OCPPChargers,
	OSCPCapacityGroups,
	DNP3DataPoints,
}

// AddOnCategories are the optional categories that can be toggled off.
var AddOnCategories = []Category{OCPPChargers, OSCPCapacityGroups, DNP3DataPoints}

// IsAddOn reports whether c is an optional add-on category.
func (c Category) IsAddOn() bool {
	switch c {
	case OCPPChargers, OSCPCapacityGroups, DNP3DataPoints:
		return true
	}
	return false
}

// Label returns the human-readable category name.
func (c Category) Label() string {
	switch c {
	case PropertiesPosted:
		return "Properties Posted"
	case DatumQueried:
		return "Datum Queried"
	case DatumDaysStored:
		return "Datum Days Stored"
	case OCPPChargers:
		return "OCPP Chargers"
	case OSCPCapacityGroups:
		return "OSCP Capacity Groups"
	case DNP3DataPoints:
		return "DNP3 Data Points"
	default:
		return "?"
	}
}

// ShortLabel is a compact column header.
func (c Category) ShortLabel() string {
	switch c {
	case PropertiesPosted:
		return "Props In"
	case DatumQueried:
		return "Queried"
	case DatumDaysStored:
		return "Stored"
	case OCPPChargers:
		return "OCPP"
	case OSCPCapacityGroups:
		return "OSCP"
	case DNP3DataPoints:
		return "DNP3"
	default:
		return string(c)
	}
}

// ParseCategory resolves a category identifier.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}
