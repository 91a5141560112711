package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/tiercost/internal/cli"
	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pricing"
	"github.com/theirongolddev/tiercost/internal/tui/components"
	"github.com/theirongolddev/tiercost/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// rateCardMinWidth fits every column of a rate card without truncation.
const rateCardMinWidth = 80

func (a App) renderRatesTab(cw int) string {
	t := theme.Active
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Background)

	visible := a.rates.VisibleCategories(a.usage)
	breakdowns := a.rates.Breakdowns(visible)

	perRow := 1
	if cw >= 2*rateCardMinWidth {
		perRow = 2
	}
	widths := components.LayoutRow(cw, perRow)

	var b strings.Builder
	for i := 0; i < len(breakdowns); i += perRow {
		var cards []string
		for j := 0; j < perRow && i+j < len(breakdowns); j++ {
			cards = append(cards, a.renderRateCard(breakdowns[i+j], widths[j]))
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(components.CardRow(cards))
	}

	var hidden []string
	for i, c := range model.AddOnCategories {
		if addOn, _ := a.usage.AddOn(c); !addOn.Enabled {
			hidden = append(hidden, fmt.Sprintf("%s [%d]", c.Label(), i+1))
		}
	}
	if len(hidden) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(" Hidden while disabled: " + strings.Join(hidden, ", ")))
	}

	lines := strings.Split(b.String(), "\n")
	from := a.ratesLine
	if from > len(lines)-1 {
		from = len(lines) - 1
	}
	return strings.Join(lines[from:], "\n")
}

// renderRateCard draws one category's tiers and where month 1 usage sits in them.
func (a App) renderRateCard(rates pricing.CategoryRates, outerW int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(outerW)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	activeStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)

	usage, tier, fill := a.currentTier(rates.Category)

	tierW, startW, countW, costW := 4, 18, 16, 12
	rateW := innerW - tierW - startW - countW - costW - 4
	if rateW < 12 {
		rateW = 12
	}
	rowFmt := fmt.Sprintf("%%-%ds %%%ds %%%ds %%%ds %%%ds", tierW, startW, rateW, countW, costW)

	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf(rowFmt, "Tier", "Start", "Rate", "Max Count", "Max Cost")))
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render(strings.Repeat("─", tierW+startW+rateW+countW+costW+4)))
	for _, ti := range rates.Tiers {
		style := valueStyle
		if ti.Index == tier {
			style = activeStyle
		}
		body.WriteString("\n")
		body.WriteString(style.Render(fmt.Sprintf(rowFmt,
			strconv.Itoa(ti.Index),
			truncStr("> "+cli.FormatCount(ti.Start), startW),
			truncStr(cli.FormatRate(ti.DisplayRate, ti.Unit), rateW),
			truncStr(cli.FormatOptional(ti.MaxCount, cli.FormatCount), countW),
			truncStr(cli.FormatOptional(ti.MaxCost, cli.FormatMoney), costW),
		)))
	}

	if tier > 0 {
		label := "Month 1 " + cli.FormatCount(usage)
		labelW := lipgloss.Width(label)
		barW := innerW - labelW - 12
		if barW < 8 {
			barW = 8
		}
		body.WriteString("\n\n")
		body.WriteString(components.TierBar(label, tier, len(rates.Tiers), fill, labelW, barW))
	}

	title := fmt.Sprintf("%s  %s", rates.Label, cli.FormatMoney(a.firstMonthCost(rates.Category)))
	return components.ContentCard(title, body.String(), outerW)
}

// currentTier locates month 1 usage of c in its schedule.
func (a App) currentTier(c model.Category) (usage float64, tier int, fill float64) {
	if len(a.rows) == 0 {
		return 0, 0, 0
	}
	s, ok := a.rates.Schedule(c)
	if !ok {
		return 0, 0, 0
	}
	usage = a.rows[0].Usage[c]
	tier, fill = s.Position(usage)
	return usage, tier, fill
}

func (a App) firstMonthCost(c model.Category) float64 {
	if len(a.rows) == 0 {
		return 0
	}
	return a.rows[0].Costs[c]
}
