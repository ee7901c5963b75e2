package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/tui/components"
	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

const maxBreakdownRows = 10

func (a App) renderMonthTab(cw int) string {
	t := theme.Active
	month := a.selectedMonth()
	if month.IsZero() {
		return components.ContentCard("Month", "No transactions loaded", cw)
	}

	var b strings.Builder

	deltaColor := t.Good
	if a.monthSpent.GreaterThan(a.prevSpent) {
		deltaColor = t.Warn
	}
	nav := fmt.Sprintf("[ %s ]", cli.FormatMonth(month))
	if a.monthIdx > 0 {
		nav = "◀ " + nav
	}
	if a.monthIdx < len(a.months)-1 {
		nav += " ▶"
	}
	metrics := []components.Metric{
		{Label: "Month", Value: nav, Delta: fmt.Sprintf("%d of %d", a.monthIdx+1, len(a.months))},
		{Label: "Spent", Value: a.money(a.monthSpent), Delta: fmt.Sprintf("%d txns", a.monthCount)},
		{Label: "vs " + cli.FormatMonth(month.Prev()), Value: cli.FormatDelta(a.cfg.General.Currency, a.monthSpent, a.prevSpent), Color: deltaColor},
		{Label: "Categories", Value: fmt.Sprintf("%d", len(a.categories)), Delta: fmt.Sprintf("%d merchants", len(a.merchants))},
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	widths := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("By Category", a.breakdownBody(a.categories, cli.CategoryLabel, widths[0]), widths[0]),
		components.ContentCard("By Merchant", a.breakdownBody(a.merchants, cli.MerchantLabel, widths[1]), widths[1]),
	}))
	return b.String()
}

// breakdownBody renders one sorted breakdown as name, share bar, amount rows.
func (a App) breakdownBody(rows []model.KeyTotal, label func(string) string, outerW int) string {
	t := theme.Active
	if len(rows) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("nothing this month")
	}

	inner := components.CardInnerWidth(outerW)
	nameW := min(18, inner/3)
	amtW := 10
	pctW := 6
	barW := max(inner-nameW-amtW-pctW-3, 4)

	name := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	amt := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	pct := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	sp := lipgloss.NewStyle().Background(t.Surface).Render(" ")

	var b strings.Builder
	for i, r := range rows {
		if i == maxBreakdownRows {
			rest := len(rows) - maxBreakdownRows
			b.WriteString(pct.Render(fmt.Sprintf("… %d more", rest)))
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(name.Render(fmt.Sprintf("%-*s", nameW, truncStr(label(r.Key), nameW))))
		b.WriteString(sp)
		b.WriteString(components.ShareBar(r.Share, barW, t.Accent))
		b.WriteString(sp)
		b.WriteString(pct.Render(fmt.Sprintf("%*s", pctW, cli.FormatPercent(r.Share))))
		b.WriteString(sp)
		b.WriteString(amt.Render(fmt.Sprintf("%*s", amtW, a.compact(r.Total))))
	}
	return b.String()
}
