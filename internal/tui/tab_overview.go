package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/tui/components"
	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	s := a.summary
	var b strings.Builder

	if s.Transactions == 0 {
		return components.ContentCard("Overview", "No transactions in "+a.ledgerPath, cw)
	}

	metrics := []components.Metric{
		{Label: "Total Spent", Value: a.money(s.Total), Delta: fmt.Sprintf("%s txns", cli.FormatNumber(int64(s.Transactions)))},
		{Label: "Per Month", Value: a.money(s.PerMonth), Delta: fmt.Sprintf("%d months", s.Months)},
		{Label: "Per Active Day", Value: a.money(s.PerActiveDay), Delta: fmt.Sprintf("%d days", s.ActiveDays)},
		{Label: "Seasonal (" + cli.FormatMonths(s.SeasonalMonths) + ")", Value: a.money(s.SeasonalTotal), Color: t.Info},
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	// Monthly spend chart
	values := make([]float64, len(a.monthly))
	labels := make([]string, len(a.monthly))
	for i, m := range a.monthly {
		values[i] = m.Total.InexactFloat64()
		labels[i] = m.Month.Start().Format("Jan")
	}
	chart := components.BarChart(values, labels, a.cfg.General.Currency, t.Accent,
		components.CardInnerWidth(cw), 8)
	b.WriteString(components.ContentCard("Monthly Spend", chart, cw))
	b.WriteString("\n")

	// Highlights + daily pulse for the selected month
	widths := components.LayoutRow(cw, 2)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var hl strings.Builder
	row := func(label, v string) {
		hl.WriteString(muted.Render(fmt.Sprintf("%-14s", label)))
		hl.WriteString(value.Render(v))
		hl.WriteString("\n")
	}
	if s.TopCategory != nil {
		row("Top category", fmt.Sprintf("%s  %s", cli.CategoryLabel(s.TopCategory.Key), a.money(s.TopCategory.Total)))
	}
	if s.TopMerchant != nil {
		row("Top merchant", fmt.Sprintf("%s  %s", cli.MerchantLabel(s.TopMerchant.Key), a.money(s.TopMerchant.Total)))
	}
	if s.Largest != nil {
		row("Largest", fmt.Sprintf("%s  %s", a.money(s.Largest.Amount), cli.FormatDate(s.Largest.Date)))
	}
	row("Span", cli.FormatDate(s.FirstDate)+" → "+cli.FormatDate(s.LastDate))

	daily := make([]float64, len(a.daily))
	for i, d := range a.daily {
		daily[i] = d.Total.InexactFloat64()
	}
	pulse := muted.Render(cli.FormatMonth(a.selectedMonth())) + "\n" +
		components.Sparkline(daily, t.Accent)
	if triggered := alertCount(a); triggered > 0 {
		pulse += "\n\n" + lipgloss.NewStyle().Foreground(t.Warn).Background(t.Surface).
			Render(fmt.Sprintf("%d alert(s) firing, press a", triggered))
	}

	b.WriteString(components.CardRow([]string{
		components.ContentCard("Highlights", strings.TrimRight(hl.String(), "\n"), widths[0]),
		components.ContentCard("Daily Pulse", pulse, widths[1]),
	}))
	return b.String()
}

func alertCount(a App) int {
	n := 0
	for _, v := range a.alerts {
		if v.Triggered {
			n++
		}
	}
	return n
}
