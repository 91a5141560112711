package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/tiercost/internal/cli"
	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pipeline"
	"github.com/theirongolddev/tiercost/internal/tui/components"
	"github.com/theirongolddev/tiercost/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

const (
	fieldNodes = iota
	fieldSources
	fieldDatumPerSource
	fieldPropsPerDatum
	fieldQueriedPerSource
	fieldDatumPerHour
	fieldPropsPerHour
	fieldOCPPCount
	fieldOSCPCount
	fieldDNP3Count
	fieldMonths
	inputFieldCount // sentinel
)

var inputLabels = [inputFieldCount]string{
	"Nodes",
	"Sources / node",
	"Datum / source / hr",
	"Props / datum",
	"Queried / source / hr",
	"Datum / hr",
	"Props / hr",
	"OCPP chargers",
	"OSCP capacity groups",
	"DNP3 data points",
	"Months",
}

// inputsState tracks the inputs tab.
type inputsState struct {
	cursor  int
	editing bool
	input   textinput.Model

	// restored when an edit is cancelled
	before       model.UsageConfiguration
	beforeMonths int

	saved   bool
	saveErr error
}

// usageField returns the plain numeric input f addresses in u, or nil.
func usageField(u *model.UsageConfiguration, f int) *float64 {
	switch f {
	case fieldNodes:
		return &u.NodeCount
	case fieldSources:
		return &u.SourcesPerNode
	case fieldDatumPerSource:
		return &u.DatumPerSourcePerHour
	case fieldPropsPerDatum:
		return &u.PropertiesPerDatum
	case fieldQueriedPerSource:
		return &u.QueriedDatumPerSourcePerHour
	case fieldOCPPCount:
		return &u.OCPPChargers.Count
	case fieldOSCPCount:
		return &u.OSCPCapacityGroups.Count
	case fieldDNP3Count:
		return &u.DNP3DataPoints.Count
	}
	return nil
}

// pinnedField returns the derived-value override f addresses in u, or nil.
func pinnedField(u *model.UsageConfiguration, f int) **float64 {
	switch f {
	case fieldDatumPerHour:
		return &u.DatumPerHour
	case fieldPropsPerHour:
		return &u.PropertiesPerHour
	}
	return nil
}

// setField stores raw into field f. Blank or unparseable text falls back to
// the configured default, or unpins a derived field.
func (a *App) setField(f int, raw string) {
	n, err := parseQuantity(raw)
	if p := usageField(&a.usage, f); p != nil {
		if err != nil {
			n = *usageField(&a.defaults, f)
		}
		*p = n
		return
	}
	if p := pinnedField(&a.usage, f); p != nil {
		if err != nil {
			*p = nil
		} else {
			*p = model.Float(n)
		}
		return
	}
	if f == fieldMonths {
		m, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || pipeline.CheckMonths(m) != nil {
			m = a.cfg.General.Months
		}
		a.months = m
	}
}

// derivedValue is what field f would be if it were not pinned.
func (a App) derivedValue(f int) float64 {
	u := a.usage.Clone()
	if p := pinnedField(&u, f); p != nil {
		*p = nil
	}
	proj := pipeline.NewProjector(u)
	if f == fieldPropsPerHour {
		return proj.PropertiesPerHour()
	}
	return proj.DatumPerHour()
}

// fieldPlaceholder is the value a blank field takes.
func (a App) fieldPlaceholder(f int) string {
	if p := usageField(&a.defaults, f); p != nil {
		return formatInput(*p)
	}
	if pinnedField(&a.usage, f) != nil {
		return formatInput(a.derivedValue(f)) + " (derived)"
	}
	return strconv.Itoa(a.cfg.General.Months)
}

// fieldText is the editable text of field f; empty for an unpinned field.
func (a App) fieldText(f int) string {
	u := a.usage
	if p := usageField(&u, f); p != nil {
		return formatInput(*p)
	}
	if p := pinnedField(&u, f); p != nil {
		if *p == nil {
			return ""
		}
		return formatInput(**p)
	}
	return strconv.Itoa(a.months)
}

// fieldDisplay is the read-only rendering of field f and its note.
func (a App) fieldDisplay(f int) (value, note string) {
	u := a.usage
	if p := usageField(&u, f); p != nil {
		value = cli.FormatCount(*p)
		switch f {
		case fieldOCPPCount, fieldOSCPCount, fieldDNP3Count:
			addOn, _ := u.AddOn(model.AddOnCategories[f-fieldOCPPCount])
			note = "off"
			if addOn.Enabled {
				note = "on"
			}
		}
		return value, note
	}
	if p := pinnedField(&u, f); p != nil {
		if *p != nil {
			return cli.FormatCount(**p), "pinned"
		}
		return cli.FormatCount(a.derivedValue(f)), "derived"
	}
	return strconv.Itoa(a.months), ""
}

func (a App) updateInputsNav(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "j", "down":
		if a.inputs.cursor < inputFieldCount-1 {
			a.inputs.cursor++
		}
		return a, nil, true
	case "k", "up":
		if a.inputs.cursor > 0 {
			a.inputs.cursor--
		}
		return a, nil, true
	case "enter":
		m, cmd := a.startInputEdit()
		return m, cmd, true
	case "x":
		a.setField(a.inputs.cursor, "")
		a.inputs.saved = false
		return a, a.scheduleRecalc(), true
	case "w":
		a.saveInputs()
		return a, nil, true
	}
	return a, nil, false
}

func (a App) startInputEdit() (tea.Model, tea.Cmd) {
	f := a.inputs.cursor
	ti := textinput.New()
	ti.CharLimit = 32
	ti.Width = 28
	ti.Placeholder = a.fieldPlaceholder(f)
	ti.SetValue(a.fieldText(f))
	ti.Focus()

	a.inputs.input = ti
	a.inputs.editing = true
	a.inputs.saved = false
	a.inputs.before = a.usage.Clone()
	a.inputs.beforeMonths = a.months
	return a, ti.Cursor.BlinkCmd()
}

// updateInputEdit feeds keys to the field being edited. Every change to the
// text is applied at once and restarts the debounce window.
func (a App) updateInputEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.inputs.editing = false
		return a, nil
	case "esc":
		a.inputs.editing = false
		a.usage = a.inputs.before
		a.months = a.inputs.beforeMonths
		return a, a.scheduleRecalc()
	}

	prev := a.inputs.input.Value()
	var cmd tea.Cmd
	a.inputs.input, cmd = a.inputs.input.Update(msg)
	if a.inputs.input.Value() == prev {
		return a, cmd
	}
	a.setField(a.inputs.cursor, a.inputs.input.Value())
	return a, tea.Batch(cmd, a.scheduleRecalc())
}

// saveInputs writes the current inputs into the config file.
func (a *App) saveInputs() {
	cfg := a.cfg
	cfg.SetUsageConfiguration(a.usage)
	cfg.General.Months = a.months
	cfg.General.AllMonths = a.allMonths

	if err := a.save(cfg); err != nil {
		a.log.Warn("saving inputs", zap.Error(err))
		a.inputs.saveErr = err
		a.inputs.saved = false
		return
	}
	a.cfg = cfg
	a.defaults = cfg.UsageConfiguration()
	a.inputs.saveErr = nil
	a.inputs.saved = true
}

func (a App) renderInputsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	noteStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceHover).Bold(true)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	halves := components.LayoutRow(cw, 2)
	formW := cw
	if !a.isCompactLayout() {
		formW = halves[0]
	}
	innerW := components.CardInnerWidth(formW)

	var form strings.Builder
	for f := 0; f < inputFieldCount; f++ {
		if f == fieldDatumPerHour || f == fieldOCPPCount || f == fieldMonths {
			form.WriteString("\n")
		}
		label := fmt.Sprintf("%-22s ", inputLabels[f]+":")

		if a.inputs.editing && f == a.inputs.cursor {
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(label))
			form.WriteString(a.inputs.input.View())
			form.WriteString("\n")
			continue
		}

		value, note := a.fieldDisplay(f)
		if note != "" {
			note = " (" + note + ")"
		}
		if f == a.inputs.cursor {
			line := markerStyle.Render("▸ ") +
				selectedLabelStyle.Render(label) +
				selectedStyle.Render(value+note)
			if pad := innerW - lipgloss.Width(line); pad > 0 {
				line += lipgloss.NewStyle().Background(t.SurfaceHover).Render(strings.Repeat(" ", pad))
			}
			form.WriteString(line)
		} else {
			form.WriteString(spaceStyle.Render("  "))
			form.WriteString(labelStyle.Render(label))
			form.WriteString(valueStyle.Render(value))
			form.WriteString(noteStyle.Render(note))
		}
		form.WriteString("\n")
	}

	switch {
	case a.inputs.saveErr != nil:
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		form.WriteString("\n")
		form.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.inputs.saveErr)))
	case a.inputs.saved:
		form.WriteString("\n")
		form.WriteString(greenStyle.Render("Saved to " + config.ConfigPath()))
	}
	form.WriteString("\n")
	form.WriteString(noteStyle.Render("[j/k] move [Enter] edit [x] default [w] save"))

	inputsCard := components.ContentCard("Usage Inputs", form.String(), formW)

	proj := pipeline.NewProjector(a.usage)
	derived := []struct{ label, value string }{
		{"Datum / hour", cli.FormatCount(proj.DatumPerHour())},
		{"Properties / hour", cli.FormatCount(proj.PropertiesPerHour())},
		{"Properties posted / month", cli.FormatCount(proj.PropertiesPostedPerMonth())},
		{"Datum queried / month", cli.FormatCount(proj.QueriesPerMonth())},
		{"Datum days stored, month 1", cli.FormatCount(proj.StoredDataCount(1))},
		{"Hours / month", cli.FormatCount(pipeline.HoursPerMonth)},
	}
	var usage strings.Builder
	for i, d := range derived {
		if i > 0 {
			usage.WriteString("\n")
		}
		usage.WriteString(labelStyle.Render(fmt.Sprintf("%-28s", d.label)))
		usage.WriteString(valueStyle.Render(d.value))
	}
	if a.isCompactLayout() {
		return inputsCard + "\n" + components.ContentCard("Monthly Usage", usage.String(), cw)
	}
	usageCard := components.ContentCard("Monthly Usage", usage.String(), halves[1])
	return components.CardRow([]string{inputsCard, usageCard})
}
