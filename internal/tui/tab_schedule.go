package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/tiercost/internal/cli"
	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/tui/components"
	"github.com/theirongolddev/tiercost/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// scheduleColumn is one column of the schedule table.
type scheduleColumn struct {
	title string
	width int
	cell  func(r model.MonthRow) string
	// off reports whether the cell belongs to a disabled add-on
	off func() bool
}

// Column sets, widest first.
const (
	columnsFull = iota
	columnsCosts
	columnsCompact
)

func (a App) scheduleColumns(set int) []scheduleColumn {
	cols := []scheduleColumn{
		{title: "Month", width: 5, cell: func(r model.MonthRow) string { return strconv.Itoa(r.MonthIndex) }},
	}
	if set != columnsCompact {
		cols = append(cols, scheduleColumn{title: "Year", width: 4, cell: func(r model.MonthRow) string { return strconv.Itoa(r.Year) }})
	}
	for _, c := range model.Categories {
		if c.IsAddOn() {
			if set == columnsCompact {
				continue
			}
			cols = append(cols, scheduleColumn{
				title: c.ShortLabel(),
				width: 10,
				cell:  func(r model.MonthRow) string { return cli.FormatMoney(r.Costs[c]) },
				off: func() bool {
					addOn, _ := a.usage.AddOn(c)
					return !addOn.Enabled
				},
			})
			continue
		}
		title := c.ShortLabel()
		if set == columnsFull {
			cols = append(cols, scheduleColumn{
				title: c.ShortLabel(),
				width: 15,
				cell:  func(r model.MonthRow) string { return cli.FormatCount(r.Usage[c]) },
			})
			title = "Cost"
		}
		cols = append(cols, scheduleColumn{
			title: title,
			width: 10,
			cell:  func(r model.MonthRow) string { return cli.FormatMoney(r.Costs[c]) },
		})
	}
	if set == columnsCompact {
		cols = append(cols, scheduleColumn{title: "Add-ons", width: 10, cell: func(r model.MonthRow) string {
			sum := 0.0
			for _, c := range model.AddOnCategories {
				sum += r.Costs[c]
			}
			return cli.FormatMoney(sum)
		}})
	}
	return append(cols,
		scheduleColumn{title: "Month Cost", width: 11, cell: func(r model.MonthRow) string { return cli.FormatMoney(r.MonthTotalCost) }},
		scheduleColumn{title: "Running Total", width: 14, cell: func(r model.MonthRow) string { return cli.FormatMoney(r.RunningTotalCost) }},
	)
}

func columnsWidth(cols []scheduleColumn) int {
	w := 0
	for _, c := range cols {
		w += c.width
	}
	return w + len(cols) - 1
}

func (a App) renderScheduleTab(cw, h int) string {
	t := theme.Active

	if a.calcErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
		return components.ContentCard("Schedule", warnStyle.Render(a.calcErr.Error()), cw)
	}

	s := a.summary
	metrics := []components.Metric{
		{Label: "First Month", Value: cli.FormatMoney(s.FirstMonthCost)},
		{Label: "First Year", Value: cli.FormatMoney(s.FirstYearCost), Delta: "months 1-12"},
		{Label: "Final Month", Value: cli.FormatMoney(s.FinalMonthCost), Delta: fmt.Sprintf("month %d", s.Months)},
		{Label: "Total", Value: cli.FormatMoney(s.TotalCost), Delta: fmt.Sprintf("%s / month avg", cli.FormatMoney(s.AverageMonthly))},
	}
	if a.isCompactLayout() {
		metrics = []components.Metric{
			metrics[0],
			metrics[1],
			{Label: "Total", Value: cli.FormatMoney(s.TotalCost), Delta: fmt.Sprintf("%d months", s.Months)},
		}
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow(metrics, cw))
	used := lipgloss.Height(b.String())

	// Chart only when there is room left for a useful table under it.
	if h-used >= 24 && len(a.rows) > 1 {
		bars := make([]components.Bar, len(a.rows))
		for i, r := range a.rows {
			bars[i] = components.Bar{
				Label:  strconv.Itoa(r.MonthIndex),
				Value:  r.MonthTotalCost,
				Marked: r.YearEnd(),
			}
		}
		chart := components.BarChart(bars, t.Accent, components.CardInnerWidth(cw), 6)
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Monthly Cost", chart, cw))
		used = lipgloss.Height(b.String())
	}

	// card border, title, header and rule
	capacity := h - used - 5
	if capacity < 3 {
		capacity = 3
	}
	b.WriteString("\n")
	b.WriteString(a.renderScheduleTable(cw, capacity))
	return b.String()
}

func (a App) renderScheduleTable(cw, capacity int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(cw)

	var cols []scheduleColumn
	for set := columnsFull; set <= columnsCompact; set++ {
		cols = a.scheduleColumns(set)
		if columnsWidth(cols) <= innerW {
			break
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	yearEndStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	offStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var body strings.Builder
	for i, c := range cols {
		if i > 0 {
			body.WriteString(spaceStyle.Render(" "))
		}
		body.WriteString(headerStyle.Render(fmt.Sprintf("%*s", c.width, truncStr(c.title, c.width))))
	}
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render(strings.Repeat("─", columnsWidth(cols))))

	rows := a.visibleRows()
	start := a.scroll
	if start > len(rows) {
		start = len(rows)
	}
	end := start + capacity
	if end > len(rows) {
		end = len(rows)
	}
	for _, r := range rows[start:end] {
		body.WriteString("\n")
		rowStyle := valueStyle
		if r.YearEnd() {
			rowStyle = yearEndStyle
		}
		for i, c := range cols {
			if i > 0 {
				body.WriteString(spaceStyle.Render(" "))
			}
			style := rowStyle
			if c.off != nil && c.off() {
				style = offStyle
			}
			body.WriteString(style.Render(fmt.Sprintf("%*s", c.width, c.cell(r))))
		}
	}

	view := "year ends"
	if a.allMonths {
		view = "all months"
	}
	title := fmt.Sprintf("Schedule  %d months · %s", a.months, view)
	if len(rows) > capacity {
		title += fmt.Sprintf("  [%d-%d of %d]", start+1, end, len(rows))
	}
	return components.ContentCard(title, body.String(), cw)
}
