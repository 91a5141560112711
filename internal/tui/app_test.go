package tui

import (
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pricing"
)

func newTestApp(t *testing.T, months int) (App, *[]config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	var saved []config.Config
	a := NewApp(Options{
		Config: cfg,
		Usage:  cfg.UsageConfiguration(),
		Rates:  pricing.DefaultRateTable(),
		Months: months,
		Save: func(c config.Config) error {
			saved = append(saved, c)
			return nil
		},
	})
	return a, &saved
}

func press(t *testing.T, a App, keys ...tea.KeyMsg) App {
	t.Helper()
	for _, k := range keys {
		m, _ := a.Update(k)
		a = m.(App)
	}
	return a
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewAppComputesSchedule(t *testing.T) {
	a, _ := newTestApp(t, 24)
	if len(a.rows) != 24 {
		t.Fatalf("rows = %d, want 24", len(a.rows))
	}
	if a.summary.Months != 24 || a.summary.TotalCost <= 0 {
		t.Errorf("summary = %+v", a.summary)
	}
	if a.recalcs != 1 {
		t.Errorf("recalcs = %d, want 1", a.recalcs)
	}
}

func TestDebouncedRecalcIgnoresStaleTicks(t *testing.T) {
	a, _ := newTestApp(t, 12)
	a.activeTab = tabInputs
	a.inputs.cursor = fieldNodes
	before := a.summary.TotalCost

	a = press(t, a,
		tea.KeyMsg{Type: tea.KeyEnter},
		tea.KeyMsg{Type: tea.KeyBackspace},
		runes("3"),
	)
	if !a.inputs.editing {
		t.Fatal("expected to be editing")
	}
	if a.usage.NodeCount != 3 {
		t.Fatalf("NodeCount = %v, want 3", a.usage.NodeCount)
	}
	if !a.pending {
		t.Fatal("edit should leave a recompute pending")
	}
	if a.summary.TotalCost != before {
		t.Fatal("schedule changed before the debounce window closed")
	}

	recalcs := a.recalcs
	m, _ := a.Update(recalcMsg{seq: a.seq - 1})
	a = m.(App)
	if a.recalcs != recalcs || !a.pending {
		t.Fatalf("stale tick recomputed: recalcs %d -> %d", recalcs, a.recalcs)
	}

	m, _ = a.Update(recalcMsg{seq: a.seq})
	a = m.(App)
	if a.recalcs != recalcs+1 {
		t.Fatalf("recalcs = %d, want %d", a.recalcs, recalcs+1)
	}
	if a.pending {
		t.Error("pending should clear after the newest tick")
	}
	if a.summary.TotalCost <= before {
		t.Errorf("TotalCost = %v, want more than %v with three nodes", a.summary.TotalCost, before)
	}
}

func TestBlankInputFallsBackToDefault(t *testing.T) {
	a, _ := newTestApp(t, 12)
	a.setField(fieldSources, "9")
	if a.usage.SourcesPerNode != 9 {
		t.Fatalf("SourcesPerNode = %v, want 9", a.usage.SourcesPerNode)
	}
	a.setField(fieldSources, "")
	if want := a.defaults.SourcesPerNode; a.usage.SourcesPerNode != want {
		t.Errorf("blank SourcesPerNode = %v, want default %v", a.usage.SourcesPerNode, want)
	}
	a.setField(fieldSources, "lots")
	if want := a.defaults.SourcesPerNode; a.usage.SourcesPerNode != want {
		t.Errorf("unparseable SourcesPerNode = %v, want default %v", a.usage.SourcesPerNode, want)
	}

	a.setField(fieldMonths, "")
	if a.months != a.cfg.General.Months {
		t.Errorf("blank months = %d, want %d", a.months, a.cfg.General.Months)
	}
}

func TestOutOfRangeMonthsFallBackToDefault(t *testing.T) {
	a, _ := newTestApp(t, 12)
	want := a.cfg.General.Months

	for _, raw := range []string{"9000000000000000000", "1201", "-4"} {
		a.setField(fieldMonths, raw)
		if a.months != want {
			t.Fatalf("months after %q = %d, want default %d", raw, a.months, want)
		}
		a.recompute()
		if len(a.rows) != want {
			t.Fatalf("rows after %q = %d, want %d", raw, len(a.rows), want)
		}
	}

	a.setField(fieldMonths, "1200")
	if a.months != 1200 {
		t.Fatalf("months = %d, want 1200", a.months)
	}
}

func TestNegativeInputFallsBackToDefault(t *testing.T) {
	a, _ := newTestApp(t, 1)
	a.setField(fieldNodes, "-10")
	if want := a.defaults.NodeCount; a.usage.NodeCount != want {
		t.Fatalf("NodeCount = %v, want default %v", a.usage.NodeCount, want)
	}
	a.recompute()
	if a.summary.FirstMonthCost < 0 {
		t.Fatalf("FirstMonthCost = %v, want non-negative", a.summary.FirstMonthCost)
	}
}

func TestDerivedFieldPinsAndUnpins(t *testing.T) {
	a, _ := newTestApp(t, 12)
	a.setField(fieldDatumPerHour, "1,000")
	if a.usage.DatumPerHour == nil || *a.usage.DatumPerHour != 1000 {
		t.Fatalf("DatumPerHour = %v, want pinned 1000", a.usage.DatumPerHour)
	}
	if v, note := a.fieldDisplay(fieldDatumPerHour); v != "1,000" || note != "pinned" {
		t.Errorf("fieldDisplay = %q %q", v, note)
	}

	a.setField(fieldDatumPerHour, " ")
	if a.usage.DatumPerHour != nil {
		t.Fatalf("DatumPerHour = %v, want derived", *a.usage.DatumPerHour)
	}
	// 1 node * 4 sources * 60 datum
	if v, note := a.fieldDisplay(fieldDatumPerHour); v != "240" || note != "derived" {
		t.Errorf("fieldDisplay = %q %q, want 240 derived", v, note)
	}
}

func TestEscRestoresInputs(t *testing.T) {
	a, _ := newTestApp(t, 12)
	a.activeTab = tabInputs
	a.inputs.cursor = fieldPropsPerDatum
	want := a.usage.PropertiesPerDatum

	a = press(t, a, tea.KeyMsg{Type: tea.KeyEnter}, runes("5"))
	if a.usage.PropertiesPerDatum == want {
		t.Fatal("typing should change the input")
	}
	a = press(t, a, tea.KeyMsg{Type: tea.KeyEscape})
	if a.inputs.editing {
		t.Error("esc should stop editing")
	}
	if a.usage.PropertiesPerDatum != want {
		t.Errorf("PropertiesPerDatum = %v, want restored %v", a.usage.PropertiesPerDatum, want)
	}
}

func TestAddOnToggleRecomputesImmediately(t *testing.T) {
	a, _ := newTestApp(t, 12)
	before := a.summary.FirstMonthCost

	a = press(t, a, runes("1"))
	if !a.usage.OCPPChargers.Enabled {
		t.Fatal("1 should enable OCPP chargers")
	}
	// 10 chargers in the first tier at $2
	if diff := a.summary.FirstMonthCost - before; math.Abs(diff-20) > 0.011 {
		t.Errorf("first month rose by %v, want 20", diff)
	}

	a = press(t, a, runes("1"))
	if a.usage.OCPPChargers.Enabled || a.summary.FirstMonthCost != before {
		t.Errorf("second press should restore: enabled=%v cost=%v", a.usage.OCPPChargers.Enabled, a.summary.FirstMonthCost)
	}
}

func TestYearsToggle(t *testing.T) {
	a, _ := newTestApp(t, 24)
	if got := len(a.visibleRows()); got != 3 {
		t.Fatalf("year ends = %d rows, want 3", got)
	}
	a = press(t, a, runes("y"))
	if got := len(a.visibleRows()); got != 24 {
		t.Errorf("all months = %d rows, want 24", got)
	}
}

func TestSaveInputs(t *testing.T) {
	a, saved := newTestApp(t, 36)
	a.activeTab = tabInputs
	a.setField(fieldNodes, "12")
	a.usage.SetAddOnEnabled(model.DNP3DataPoints, true)

	a = press(t, a, runes("w"))
	if len(*saved) != 1 {
		t.Fatalf("saves = %d, want 1", len(*saved))
	}
	got := (*saved)[0]
	if got.Usage.NodeCount != 12 || got.General.Months != 36 || !got.AddOns.DNP3.Enabled {
		t.Errorf("saved config = %+v", got)
	}
	if !a.inputs.saved || a.defaults.NodeCount != 12 {
		t.Errorf("saved=%v defaults.NodeCount=%v", a.inputs.saved, a.defaults.NodeCount)
	}
}

func TestSaveInputsError(t *testing.T) {
	a, _ := newTestApp(t, 12)
	a.save = func(config.Config) error { return errors.New("disk full") }
	a.saveInputs()
	if a.inputs.saveErr == nil || a.inputs.saved {
		t.Errorf("saveErr=%v saved=%v", a.inputs.saveErr, a.inputs.saved)
	}
}

func TestFinishSetupAppliesAndSaves(t *testing.T) {
	cfg := config.DefaultConfig()
	var saved []config.Config
	a := NewApp(Options{
		Config:    cfg,
		Usage:     cfg.UsageConfiguration(),
		Rates:     pricing.DefaultRateTable(),
		Months:    12,
		NeedSetup: true,
		Save: func(c config.Config) error {
			saved = append(saved, c)
			return nil
		},
	})
	if a.setupForm == nil {
		t.Fatal("expected a setup form")
	}
	a.setupVals.Nodes = "7"
	a.finishSetup()
	if a.usage.NodeCount != 7 || a.defaults.NodeCount != 7 {
		t.Errorf("NodeCount = %v, defaults %v, want 7", a.usage.NodeCount, a.defaults.NodeCount)
	}
	if len(saved) != 1 || saved[0].Usage.NodeCount != 7 {
		t.Errorf("saved = %+v", saved)
	}
}

func TestViewRendersEachTab(t *testing.T) {
	a, _ := newTestApp(t, 60)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	a = m.(App)

	for _, tc := range []struct {
		key  string
		want string
	}{
		{"s", "Running Total"},
		{"r", "Properties Posted"},
		{"i", "Usage Inputs"},
	} {
		a = press(t, a, runes(tc.key))
		view := a.View()
		if !strings.Contains(view, tc.want) {
			t.Errorf("tab %q view missing %q", tc.key, tc.want)
		}
		if lines := strings.Count(view, "\n") + 1; lines != 40 {
			t.Errorf("tab %q view has %d lines, want 40", tc.key, lines)
		}
	}
}

func TestViewTooNarrow(t *testing.T) {
	a, _ := newTestApp(t, 12)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	if view := m.(App).View(); !strings.Contains(view, "too narrow") {
		t.Errorf("view = %q", view)
	}
}
