package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pricing"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	costStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int  // optional column widths, auto-calculated if nil
	Marked  []bool // rows drawn in the accent colour, e.g. year ends
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	// Calculate column widths
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			if w := lipgloss.Width(h); w > widths[i] {
				widths[i] = w
			}
		}
		for _, row := range t.Rows {
			if isSeparator(row) {
				continue
			}
			for i, cell := range row {
				if w := lipgloss.Width(cell); i < numCols && w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	var b strings.Builder

	// Title above table if present
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	// Top border
	b.WriteString(dimStyle.Render("╭"))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < numCols-1 {
			b.WriteString(dimStyle.Render("┬"))
		}
	}
	b.WriteString(dimStyle.Render("╮"))
	b.WriteString("\n")

	// Header row
	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			w := widths[i]
			padded := fmt.Sprintf(" %-*s ", w, h)
			b.WriteString(headerStyle.Render(padded))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")

		// Header separator
		b.WriteString(dimStyle.Render("├"))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("┼"))
			}
		}
		b.WriteString(dimStyle.Render("┤"))
		b.WriteString("\n")
	}

	// Data rows
	for r, row := range t.Rows {
		if isSeparator(row) {
			// Separator row
			b.WriteString(dimStyle.Render("├"))
			for i, w := range widths {
				b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
				if i < numCols-1 {
					b.WriteString(dimStyle.Render("┼"))
				}
			}
			b.WriteString(dimStyle.Render("┤"))
			b.WriteString("\n")
			continue
		}

		style := valueStyle
		if r < len(t.Marked) && t.Marked[r] {
			style = costStyle
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			w := widths[i]
			cell := ""
			if i < len(row) {
				cell = row[i]
			}

			// Right-align numeric columns (all except first)
			var padded string
			if i == 0 {
				padded = fmt.Sprintf(" %-*s ", w, cell)
			} else {
				padded = fmt.Sprintf(" %*s ", w, cell)
			}
			b.WriteString(style.Render(padded))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	// Bottom border
	b.WriteString(dimStyle.Render("╰"))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < numCols-1 {
			b.WriteString(dimStyle.Render("┴"))
		}
	}
	b.WriteString(dimStyle.Render("╯"))
	b.WriteString("\n")

	return b.String()
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == "---"
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		max = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / max * float64(len(blocks)-1))
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(blocks[idx])
	}

	return b.String()
}

// ScheduleTable lays out schedule rows with a usage and cost column for each
// metered category and a cost column for each add-on. Year-end rows are marked.
func ScheduleTable(title string, rows []model.MonthRow) Table {
	headers := []string{"Month", "Year"}
	for _, c := range model.Categories {
		if c.IsAddOn() {
			headers = append(headers, c.ShortLabel())
			continue
		}
		headers = append(headers, c.ShortLabel(), "Cost")
	}
	headers = append(headers, "Month Cost", "Running Total")

	t := Table{Title: title, Headers: headers}
	for _, r := range rows {
		cells := []string{strconv.Itoa(r.MonthIndex), strconv.Itoa(r.Year)}
		for _, c := range model.Categories {
			if !c.IsAddOn() {
				cells = append(cells, FormatCount(r.Usage[c]))
			}
			cells = append(cells, FormatMoney(r.Costs[c]))
		}
		cells = append(cells, FormatMoney(r.MonthTotalCost), FormatMoney(r.RunningTotalCost))
		t.Rows = append(t.Rows, cells)
		t.Marked = append(t.Marked, r.YearEnd())
	}
	return t
}

// RateTable lays out one category's tier breakdown.
func RateTable(rates pricing.CategoryRates) Table {
	t := Table{
		Title:   rates.Label,
		Headers: []string{"Tier", "Start", "Rate", "Max Count", "Max Cost"},
	}
	for _, tier := range rates.Tiers {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(tier.Index),
			"> " + FormatCount(tier.Start),
			FormatRate(tier.DisplayRate, tier.Unit),
			FormatOptional(tier.MaxCount, FormatCount),
			FormatOptional(tier.MaxCost, FormatMoney),
		})
	}
	return t
}

// RenderSummary renders the headline figures of a schedule as label/value lines.
func RenderSummary(s model.ScheduleSummary) string {
	lines := [][2]string{
		{"Months", strconv.Itoa(s.Months)},
		{"First month", FormatMoney(s.FirstMonthCost)},
		{"First year", FormatMoney(s.FirstYearCost)},
		{"Final month", FormatMoney(s.FinalMonthCost)},
		{"Average / month", FormatMoney(s.AverageMonthly)},
		{"Total", FormatMoney(s.TotalCost)},
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%-16s", l[0])))
		b.WriteString(costStyle.Render(l[1]))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderWarning renders a single highlighted notice line.
func RenderWarning(msg string) string {
	return "  " + warnStyle.Render(msg) + "\n"
}
