// Package tui provides the interactive Bubble Tea dashboard for tiercost.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pipeline"
	"github.com/theirongolddev/tiercost/internal/pricing"
	"github.com/theirongolddev/tiercost/internal/tui/components"
	"github.com/theirongolddev/tiercost/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

const (
	tabSchedule = iota
	tabRates
	tabInputs
)

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180
	minContentHeight = 5
)

// Options configures a dashboard.
type Options struct {
	// Config is the loaded configuration. Blank inputs fall back to its
	// usage values and the inputs tab saves back into it.
	Config    config.Config
	Usage     model.UsageConfiguration
	Rates     pricing.RateTable
	Months    int
	AllMonths bool

	// Debounce is how long edits settle before a recompute. Zero uses
	// config.DefaultDebounce; negative recomputes on every edit.
	Debounce time.Duration

	// NeedSetup shows the first-run form before the dashboard.
	NeedSetup bool

	// Save persists the config. Defaults to config.Save.
	Save func(config.Config) error

	Logger *zap.Logger
}

// recalcMsg fires when a debounce window closes. Only the newest one counts.
type recalcMsg struct {
	seq int
}

// App is the root Bubble Tea model.
type App struct {
	cfg      config.Config
	save     func(config.Config) error
	log      *zap.Logger
	debounce time.Duration

	// Inputs
	usage     model.UsageConfiguration
	defaults  model.UsageConfiguration
	rates     pricing.RateTable
	months    int
	allMonths bool

	// Computed
	rows     []model.MonthRow
	summary  model.ScheduleSummary
	calcErr  error
	calcTime time.Duration
	recalcs  int

	// Debounce state
	seq     int
	pending bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	scroll    int // first visible schedule row
	ratesLine int // first visible line of the rates tab
	inputs    inputsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	needSetup bool
}

// NewApp creates the dashboard model and computes the initial schedule.
func NewApp(opts Options) App {
	debounce := opts.Debounce
	if debounce == 0 {
		debounce = config.DefaultDebounce
	}
	save := opts.Save
	if save == nil {
		save = config.Save
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	a := App{
		cfg:       opts.Config,
		save:      save,
		log:       log,
		debounce:  debounce,
		usage:     opts.Usage.Clone(),
		defaults:  opts.Config.UsageConfiguration(),
		rates:     opts.Rates,
		months:    opts.Months,
		allMonths: opts.AllMonths,
		needSetup: opts.NeedSetup,
	}
	if a.needSetup {
		vals := NewSetupValues(opts.Config)
		a.setupVals = &vals
		a.setupForm = newSetupForm(a.setupVals)
	}
	a.recompute()
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.EnableMouseCellMotion}
	if a.setupForm != nil {
		cmds = append(cmds, a.setupForm.Init())
	}
	return tea.Batch(cmds...)
}

// recompute runs the engine over the current inputs.
func (a *App) recompute() {
	start := time.Now()
	rows, err := pipeline.ComputeMonthlySchedule(a.usage, a.rates, a.months)
	a.calcTime = time.Since(start)
	a.pending = false
	a.recalcs++
	if err != nil {
		a.calcErr = err
		a.log.Error("recalculation failed", zap.Error(err))
		return
	}
	a.calcErr = nil
	a.rows = rows
	a.summary = model.Summarize(rows)
	if n := len(a.visibleRows()); a.scroll >= n {
		a.scroll = n - 1
	}
	if a.scroll < 0 {
		a.scroll = 0
	}
	a.log.Debug("recalculated",
		zap.Int("months", a.months),
		zap.Float64("total", a.summary.TotalCost),
		zap.Duration("took", a.calcTime),
	)
}

// scheduleRecalc restarts the debounce window. The recompute runs when the
// newest window closes; earlier windows are ignored.
func (a *App) scheduleRecalc() tea.Cmd {
	a.seq++
	if a.debounce < 0 {
		a.recompute()
		return nil
	}
	a.pending = true
	seq := a.seq
	return tea.Tick(a.debounce, func(time.Time) tea.Msg {
		return recalcMsg{seq: seq}
	})
}

// recalcNow cancels any pending window and recomputes immediately.
func (a *App) recalcNow() {
	a.seq++
	a.recompute()
}

func (a App) visibleRows() []model.MonthRow {
	return pipeline.VisibleRows(a.rows, a.allMonths)
}

// toggleAddOn flips the add-on for c and recomputes.
func (a *App) toggleAddOn(c model.Category) {
	addOn, ok := a.usage.AddOn(c)
	if !ok {
		return
	}
	a.usage.SetAddOnEnabled(c, !addOn.Enabled)
	a.recalcNow()
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case recalcMsg:
		if msg.seq != a.seq {
			return a, nil
		}
		a.recompute()
		return a, nil

	case tea.MouseMsg:
		if a.showHelp || a.setupForm != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.scrollBy(-1)
		case tea.MouseButtonWheelDown:
			a.scrollBy(1)
		case tea.MouseButtonLeft:
			if msg.Action == tea.MouseActionPress && msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return a, tea.Quit
		}

		if a.needSetup && a.setupForm != nil {
			return a.updateSetupForm(msg)
		}

		if a.activeTab == tabInputs && a.inputs.editing {
			return a.updateInputEdit(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "1":
			a.toggleAddOn(model.OCPPChargers)
			return a, nil
		case "2":
			a.toggleAddOn(model.OSCPCapacityGroups)
			return a, nil
		case "3":
			a.toggleAddOn(model.DNP3DataPoints)
			return a, nil
		case "y":
			a.allMonths = !a.allMonths
			a.scroll = 0
			return a, nil
		case "left", "shift+tab":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
			return a, nil
		case "right", "tab":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
			return a, nil
		}

		if a.activeTab == tabInputs {
			if m, cmd, ok := a.updateInputsNav(key); ok {
				return m, cmd
			}
		}

		switch key {
		case "j", "down":
			a.scrollBy(1)
			return a, nil
		case "k", "up":
			a.scrollBy(-1)
			return a, nil
		case "g", "home":
			a.scroll, a.ratesLine = 0, 0
			return a, nil
		case "G", "end":
			a.scrollBy(len(a.visibleRows()))
			return a, nil
		}

		if len(key) == 1 {
			if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
				a.activeTab = idx
			}
		}
		return a, nil
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a *App) scrollBy(delta int) {
	switch a.activeTab {
	case tabRates:
		a.ratesLine += delta
		if a.ratesLine < 0 {
			a.ratesLine = 0
		}
		return
	case tabInputs:
		return
	}
	a.scroll += delta
	if last := len(a.visibleRows()) - 1; a.scroll > last {
		a.scroll = last
	}
	if a.scroll < 0 {
		a.scroll = 0
	}
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.finishSetup()
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

// finishSetup applies the first-run answers, saves them and recomputes.
func (a *App) finishSetup() {
	cfg := a.cfg
	if err := a.setupVals.Apply(&cfg); err != nil {
		a.inputs.saveErr = err
		return
	}
	a.cfg = cfg
	a.defaults = cfg.UsageConfiguration()
	pinnedDatum, pinnedProps := a.usage.DatumPerHour, a.usage.PropertiesPerHour
	a.usage = cfg.UsageConfiguration()
	a.usage.DatumPerHour, a.usage.PropertiesPerHour = pinnedDatum, pinnedProps
	if err := a.save(cfg); err != nil {
		a.log.Warn("saving setup", zap.Error(err))
		a.inputs.saveErr = err
	}
	a.recalcNow()
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  tiercost needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"s r i", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Scroll schedule / move between inputs"},
			{"g G", "First / last row"},
		}},
		{"Schedule", []struct{ key, desc string }{
			{"1 2 3", "Toggle OCPP / OSCP / DNP3 add-ons"},
			{"y", "Year ends only / all months"},
		}},
		{"Inputs", []struct{ key, desc string }{
			{"Enter", "Edit field (blank uses the default)"},
			{"Esc", "Cancel edit"},
			{"x", "Reset field to default"},
			{"w", "Write inputs to the config file"},
		}},
		{"", []struct{ key, desc string }{
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n")
		if s.title != "" {
			b.WriteString(sectionStyle.Render(s.title))
			b.WriteString("\n")
		}
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w) + "\n" + a.renderAddOnPills(w)
	statusBar := components.RenderStatusBar(w, a.statusText())

	headerH := lipgloss.Height(header)
	statusH := lipgloss.Height(statusBar)
	contentH := h - headerH - statusH
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabSchedule:
		content = a.renderScheduleTab(cw, contentH)
	case tabRates:
		content = a.renderRatesTab(cw)
	case tabInputs:
		content = a.renderInputsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// renderAddOnPills shows each add-on's toggle state and the view mode.
func (a App) renderAddOnPills(w int) string {
	t := theme.Active
	onStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	offStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	sepStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(sepStyle.Render(" "))
	for i, c := range model.AddOnCategories {
		addOn, _ := a.usage.AddOn(c)
		label := fmt.Sprintf("%d %s", i+1, c.ShortLabel())
		if addOn.Enabled {
			b.WriteString(onStyle.Render("● " + label))
		} else {
			b.WriteString(offStyle.Render("○ " + label))
		}
		b.WriteString(sepStyle.Render(" │ "))
	}
	view := "year ends"
	if a.allMonths {
		view = "all months"
	}
	b.WriteString(onStyle.Render(fmt.Sprintf("%d months", a.months)))
	b.WriteString(sepStyle.Render(" · " + view + " "))

	return lipgloss.NewStyle().Background(t.Surface).Width(w).Render(b.String())
}

func (a App) statusText() string {
	switch {
	case a.calcErr != nil:
		return "error: " + a.calcErr.Error()
	case a.pending:
		return "recalculating…"
	default:
		return fmt.Sprintf("computed in %s", a.calcTime.Round(time.Microsecond))
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the widths RenderTabBar draws.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
