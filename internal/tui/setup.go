package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/tui/theme"
)

// SetupValues holds the first-run form's answers as the strings huh edits.
type SetupValues struct {
	Nodes            string
	Sources          string
	DatumPerSource   string
	PropsPerDatum    string
	QueriedPerSource string
	OCPPCount        string
	OSCPCount        string
	DNP3Count        string
	Theme            string
}

// NewSetupValues seeds the form from cfg.
func NewSetupValues(cfg config.Config) SetupValues {
	themeName := cfg.Appearance.Theme
	if themeName == "" {
		themeName = theme.FlexokiDark.Name
	}
	return SetupValues{
		Nodes:            formatInput(cfg.Usage.NodeCount),
		Sources:          formatInput(cfg.Usage.SourcesPerNode),
		DatumPerSource:   formatInput(cfg.Usage.DatumPerSourcePerHour),
		PropsPerDatum:    formatInput(cfg.Usage.PropertiesPerDatum),
		QueriedPerSource: formatInput(cfg.Usage.QueriedDatumPerSourcePerHour),
		OCPPCount:        formatInput(cfg.AddOns.OCPP.Count),
		OSCPCount:        formatInput(cfg.AddOns.OSCP.Count),
		DNP3Count:        formatInput(cfg.AddOns.DNP3.Count),
		Theme:            themeName,
	}
}

// SetupGroups builds the form pages that edit v.
func SetupGroups(v *SetupValues) []*huh.Group {
	input := func(title, desc string, value *string) huh.Field {
		return huh.NewInput().
			Title(title).
			Description(desc).
			Value(value).
			Validate(validateQuantity)
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return []*huh.Group{
		huh.NewGroup(
			input("Node count", "Nodes posting data", &v.Nodes),
			input("Sources per node", "Data sources on each node", &v.Sources),
			input("Datum per source per hour", "How often each source posts", &v.DatumPerSource),
			input("Properties per datum", "Properties in each datum", &v.PropsPerDatum),
			input("Queried datum per source per hour", "Datum read back per source", &v.QueriedPerSource),
		).Title("Usage"),
		huh.NewGroup(
			input("OCPP chargers", "Chargers billed per month when enabled", &v.OCPPCount),
			input("OSCP capacity groups", "Capacity groups billed per month when enabled", &v.OSCPCount),
			input("DNP3 data points", "Data points billed per month when enabled", &v.DNP3Count),
		).Title("Add-ons"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&v.Theme),
		),
	}
}

// Apply writes the answers into cfg. Add-on toggles are left as they were.
func (v SetupValues) Apply(cfg *config.Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"node count", v.Nodes, &cfg.Usage.NodeCount},
		{"sources per node", v.Sources, &cfg.Usage.SourcesPerNode},
		{"datum per source per hour", v.DatumPerSource, &cfg.Usage.DatumPerSourcePerHour},
		{"properties per datum", v.PropsPerDatum, &cfg.Usage.PropertiesPerDatum},
		{"queried datum per source per hour", v.QueriedPerSource, &cfg.Usage.QueriedDatumPerSourcePerHour},
		{"OCPP chargers", v.OCPPCount, &cfg.AddOns.OCPP.Count},
		{"OSCP capacity groups", v.OSCPCount, &cfg.AddOns.OSCP.Count},
		{"DNP3 data points", v.DNP3Count, &cfg.AddOns.DNP3.Count},
	}
	for _, f := range fields {
		n, err := parseQuantity(f.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = n
	}

	if _, ok := theme.Lookup(v.Theme); ok {
		cfg.Appearance.Theme = v.Theme
		theme.SetActive(v.Theme)
	}
	return nil
}

// newSetupForm builds the in-dashboard first-run form over vals.
func newSetupForm(vals *SetupValues) *huh.Form {
	return huh.NewForm(SetupGroups(vals)...).WithShowHelp(true)
}

func validateQuantity(s string) error {
	_, err := parseQuantity(s)
	return err
}

// parseQuantity parses a non-negative number, accepting digit grouping commas.
func parseQuantity(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("enter a number")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}

func formatInput(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
