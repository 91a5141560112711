package components

import (
	"fmt"

	"github.com/theirongolddev/tiercost/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ColorForTier returns a color that warms as usage climbs into higher tiers.
// tier is 1-based; tiers is the schedule length.
func ColorForTier(tier, tiers int) string {
	t := theme.Active
	switch {
	case tiers <= 1 || tier <= 1:
		return string(t.Green)
	case tier == tiers:
		return string(t.Red)
	case tier*2 > tiers:
		return string(t.Orange)
	default:
		return string(t.Yellow)
	}
}

// TierBar renders a labelled bar showing how far usage has progressed through
// its current tier, followed by the tier number.
func TierBar(label string, tier, tiers int, fill float64, labelW, barWidth int) string {
	t := theme.Active

	if fill < 0 {
		fill = 0
	}
	if fill > 1 {
		fill = 1
	}
	color := ColorForTier(tier, tiers)

	bar := progress.New(
		progress.WithSolidFill(color),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	tierStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar.ViewAs(fill) +
		spaceStyle.Render(" ") +
		tierStyle.Render(fmt.Sprintf("tier %d/%d", tier, tiers))
}
