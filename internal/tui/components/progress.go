package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

// ColorForPct returns good/warn/bad based on budget utilization.
func ColorForPct(pct float64) string {
	return string(theme.Active.ForUsage(pct))
}

// BudgetBar renders a labeled budget utilization bar. Usage past 100% fills
// the bar and the percentage keeps counting.
func BudgetBar(label string, pct float64, labelW, barWidth int) string {
	t := theme.Active
	fill := min(max(pct, 0), 1)

	bar := progress.New(
		progress.WithSolidFill(ColorForPct(pct)),
		progress.WithWidth(max(barWidth, 4)),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorForPct(pct))).Background(t.Surface).Bold(true)
	space := lipgloss.NewStyle().Background(t.Surface).Render(" ")

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		space +
		bar.ViewAs(fill) +
		space +
		pctStyle.Render(fmt.Sprintf("%5.1f%%", pct*100))
}

// ShareBar renders a plain horizontal share bar for breakdown rows.
func ShareBar(share float64, width int, color lipgloss.Color) string {
	t := theme.Active
	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(max(width, 2)),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.Surface)
	return bar.ViewAs(min(max(share, 0), 1))
}
